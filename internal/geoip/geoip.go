// Package geoip определяет страну сервера по базе MaxMind (GeoLite2-Country
// или совместимой). Используется, когда имя узла не совпало ни с одним
// правилом региона.
package geoip

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"
)

// DB — открытая база стран. Безопасна для конкурентного чтения.
type DB struct {
	reader *geoip2.Reader
}

// Open открывает базу. Пустой путь и отсутствующий файл не считаются
// ошибкой: возвращается nil, и определение по IP отключено.
func Open(path string, log logrus.FieldLogger) (*DB, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if log != nil {
			log.WithField("path", path).Warn("GeoIP database not found, IP fallback disabled")
		}
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	if log != nil {
		meta := reader.Metadata()
		log.WithFields(logrus.Fields{"path": path, "type": meta.DatabaseType}).Info("GeoIP database loaded")
	}
	return &DB{reader: reader}, nil
}

// CountryCode возвращает ISO-код страны в верхнем регистре.
func (d *DB) CountryCode(ip net.IP) (string, bool) {
	if d == nil || d.reader == nil || ip == nil {
		return "", false
	}
	record, err := d.reader.Country(ip)
	if err != nil || record == nil || record.Country.IsoCode == "" {
		return "", false
	}
	return strings.ToUpper(record.Country.IsoCode), true
}

// Close закрывает базу.
func (d *DB) Close() error {
	if d == nil || d.reader == nil {
		return nil
	}
	return d.reader.Close()
}
