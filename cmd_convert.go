package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sub-renamer/internal/subscription"
	"sub-renamer/internal/utils"
)

var (
	convertOutDir      string
	convertContentType string
	convertJobs        int
)

func init() {
	addStyleFlags(commandConvert)
	commandConvert.Flags().StringVarP(&convertOutDir, "out", "o", "", "Output directory (default: stdout)")
	commandConvert.Flags().StringVarP(&convertContentType, "content-type", "t", "", "Declared content type (default: by file extension)")
	commandConvert.Flags().IntVarP(&convertJobs, "jobs", "j", 4, "Files processed concurrently")
	mainCommand.AddCommand(commandConvert)
}

var commandConvert = &cobra.Command{
	Use:   "convert [files|-]",
	Short: "Rewrite node names in subscription files",
	RunE:  runConvert,
}

type convertJob struct {
	src  string
	text string
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	applyStyleFlags(cmd, cfg)
	proc, closeDB, err := buildProcessor(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	if len(args) == 0 {
		args = []string{"-"}
	}
	if convertOutDir != "" {
		if err := os.MkdirAll(convertOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	jobs := make([]convertJob, len(args))
	g, ctx := errgroup.WithContext(parent)
	if convertJobs > 0 {
		g.SetLimit(convertJobs)
	}
	for i, src := range args {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := convertOne(proc, cfg, src, cmd.InOrStdin(), log)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			jobs[i] = convertJob{src: src, text: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if convertOutDir == "" {
		w := cmd.OutOrStdout()
		for _, job := range jobs {
			io.WriteString(w, job.text)
		}
		return nil
	}
	for _, job := range jobs {
		if err := writeResult(convertOutDir, job.src, job.text); err != nil {
			return err
		}
		log.WithField("file", job.src).Info("converted")
	}
	return nil
}

// convertOne обрабатывает один источник своим процессорным вызовом,
// то есть со своим реестром имён.
func convertOne(proc *subscription.Processor, cfg *AppConfig, src string, stdin io.Reader, log logrus.FieldLogger) (string, error) {
	r := stdin
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := readLimited(r, cfg.MaxBodyBytes)
	if err != nil {
		return "", err
	}

	contentType := convertContentType
	if contentType == "" {
		contentType = contentTypeByExt(src)
	}
	res := proc.Process(subscription.Request{
		Text:        string(data),
		ContentType: contentType,
		Config:      cfg.RenameConfig(),
	})
	log.WithFields(logrus.Fields{"file": src, "kind": res.Kind.String()}).Debug("file processed")
	return res.Text, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file larger than %d bytes", limit)
	}
	return data, nil
}

func contentTypeByExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return ""
	}
}

// writeResult атомарно пишет результат в outDir под именем исходного
// файла (stdin сохраняется как stdin.txt).
func writeResult(outDir, src, text string) error {
	name := filepath.Base(src)
	if src == "-" {
		name = "stdin.txt"
	}
	dst := filepath.Join(outDir, name)
	if !utils.IsPathSafe(dst, outDir) {
		return fmt.Errorf("unsafe output path: %s", dst)
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
