package rules

import (
	"strings"
	"sync"

	"github.com/samber/lo"
)

func region(code, en, cn string, keywords ...string) RegionRule {
	return RegionRule{Code: code, Keywords: keywords, Names: Names{EN: en, CN: cn}}
}

// defaultRegions упорядочены по приоритету: HK стоит раньше SG, US — первым.
var defaultRegions = []RegionRule{
	region("US", "🇺🇸US", "🇺🇸美国", "美国", "美國", "US", "洛杉矶", "洛杉磯", "西雅图", "纽约", "芝加哥", "Atlanta", "States", "American", "Los Angeles", "Seattle", "New York", "Chicago"),
	region("HK", "🇭🇰HK", "🇭🇰香港", "港", "香港", "HK", "Hong Kong"),
	region("SG", "🇸🇬SG", "🇸🇬新加坡", "新加坡", "狮城", "SG", "Singapore"),
	region("TW", "🇨🇳TW", "🇨🇳台湾", "台", "台湾", "台北", "高雄", "TW", "Taiwan", "Taipei", "Kaohsiung"),
	region("JP", "🇯🇵JP", "🇯🇵日本", "日", "东京", "大阪", "名古屋", "JP", "Tokyo", "Japan", "Osaka", "Nagoya"),
	region("KR", "🇰🇷KR", "🇰🇷韩国", "韩国", "首尔", "釜山", "KR", "Korea", "Seoul", "Busan"),
	region("TR", "🇹🇷TR", "🇹🇷土耳其", "土耳其", "伊斯坦布尔", "安卡拉", "TR", "Turkey", "Istanbul", "Ankara"),
	region("IE", "🇮🇪IRL", "🇮🇪爱尔兰", "爱尔兰", "都柏林", "IE", "Ireland", "Dublin"),
	region("AU", "🇦🇺AU", "🇦🇺澳大利亚", "澳", "悉尼", "墨尔本", "布里斯班", "AU", "Australia", "Sydney", "Melbourne", "Brisbane"),
	region("FR", "🇫🇷FRA", "🇫🇷法国", "法国", "巴黎", "里昂", "马赛", "FR", "France", "Paris", "Lyon", "Marseille"),
	region("SE", "🇸🇪SE", "🇸🇪瑞典", "瑞典", "斯德哥尔摩", "哥德堡", "SE", "Sweden", "Stockholm", "Gothenburg"),
	region("DE", "🇩🇪DE", "🇩🇪德国", "德国", "法兰克福", "柏林", "慕尼黑", "DE", "Germany", "Frankfurt", "Berlin", "Munich"),
	region("GB", "🇬🇧GB", "🇬🇧英国", "英国", "伦敦", "曼彻斯特", "伯明翰", "GB", "UK", "United Kingdom", "London", "Manchester", "Birmingham"),
	region("IN", "🇮🇳IN", "🇮🇳印度", "印度", "孟买", "德里", "班加罗尔", "IN", "India", "Mumbai", "Delhi", "Bangalore"),
	region("CA", "🇨🇦CA", "🇨🇦加拿大", "加拿大", "多伦多", "温哥华", "蒙特利尔", "CA", "Canada", "Toronto", "Vancouver", "Montreal"),
	region("ES", "🇪🇸ES", "🇪🇸西班牙", "西班牙", "马德里", "巴塞罗那", "ES", "Spain", "Madrid", "Barcelona"),
	region("IT", "🇮🇹IT", "🇮🇹意大利", "意大利", "罗马", "米兰", "那不勒斯", "IT", "Italy", "Rome", "Milan", "Naples"),
	region("NL", "🇳🇱NL", "🇳🇱荷兰", "荷兰", "阿姆斯特丹", "鹿特丹", "NL", "Netherlands", "Amsterdam", "Rotterdam"),
	region("CH", "🇨🇭CH", "🇨🇭瑞士", "瑞士", "苏黎世", "日内瓦", "CH", "Switzerland", "Zurich", "Geneva"),
	region("RU", "🇷🇺RU", "🇷🇺俄罗斯", "俄罗斯", "莫斯科", "圣彼得堡", "RU", "Russia", "Moscow", "Saint Petersburg"),
	region("BR", "🇧🇷BR", "🇧🇷巴西", "巴西", "圣保罗", "里约热内卢", "BR", "Brazil", "São Paulo", "Rio de Janeiro"),
	region("ZA", "🇿🇦ZA", "🇿🇦南非", "南非", "约翰内斯堡", "开普敦", "ZA", "South Africa", "Johannesburg", "Cape Town"),
	region("MX", "🇲🇽MX", "🇲🇽墨西哥", "墨西哥", "墨西哥城", "瓜达拉哈拉", "MX", "Mexico", "Mexico City", "Guadalajara"),
	region("AR", "🇦🇷AR", "🇦🇷阿根廷", "阿根廷", "布宜诺斯艾利斯", "AR", "Argentina", "Buenos Aires"),
	region("PL", "🇵🇱PL", "🇵🇱波兰", "波兰", "华沙", "克拉科夫", "PL", "Poland", "Warsaw", "Krakow"),
	region("TH", "🇹🇭TH", "🇹🇭泰国", "泰国", "曼谷", "清迈", "TH", "Thailand", "Bangkok", "Chiang Mai"),
	region("MY", "🇲🇾MY", "🇲🇾马来西亚", "马来西亚", "吉隆坡", "槟城", "MY", "Malaysia", "Kuala Lumpur", "Penang"),
	region("VN", "🇻🇳VN", "🇻🇳越南", "越南", "河内", "胡志明", "VN", "Vietnam", "Hanoi", "Ho Chi Minh"),
	region("PH", "🇵🇭PH", "🇵🇭菲律宾", "菲律宾", "马尼拉", "PH", "Philippines", "Manila"),
	region("EG", "🇪🇬EG", "🇪🇬埃及", "埃及", "开罗", "EG", "Egypt", "Cairo"),
	region("SA", "🇸🇦SA", "🇸🇦沙特阿拉伯", "沙特", "利雅得", "吉达", "SA", "Saudi Arabia", "Riyadh", "Jeddah"),
	region("AE", "🇦🇪AE", "🇦🇪阿联酋", "阿联酋", "迪拜", "阿布扎比", "AE", "UAE", "Dubai", "Abu Dhabi"),
	region("NO", "🇳🇴NO", "🇳🇴挪威", "挪威", "奥斯陆", "NO", "Norway", "Oslo"),
	region("FI", "🇫🇮FI", "🇫🇮芬兰", "芬兰", "赫尔辛基", "FI", "Finland", "Helsinki"),
	region("AT", "🇦🇹AT", "🇦🇹奥地利", "奥地利", "维也纳", "AT", "Austria", "Vienna"),
	region("GR", "🇬🇷GR", "🇬🇷希腊", "希腊", "雅典", "GR", "Greece", "Athens"),
	region("HU", "🇭🇺HU", "🇭🇺匈牙利", "匈牙利", "布达佩斯", "HU", "Hungary", "Budapest"),
	region("CZ", "🇨🇿CZ", "🇨🇿捷克", "捷克", "布拉格", "CZ", "Czech", "Prague"),
	region("NZ", "🇳🇿NZ", "🇳🇿新西兰", "新西兰", "奥克兰", "NZ", "New Zealand", "Auckland"),
	region("NP", "🇳🇵NP", "🇳🇵尼泊尔", "尼泊尔", "加德满都", "NP", "Nepal", "Kathmandu"),
	region("PT", "🇵🇹PT", "🇵🇹葡萄牙", "葡萄牙", "里斯本", "PT", "Portugal", "Lisbon"),
	region("PK", "🇵🇰PK", "🇵🇰巴基斯坦", "巴基斯坦", "伊斯兰堡", "PK", "Pakistan", "Islamabad"),
	region("IR", "🇮🇷IR", "🇮🇷伊朗", "伊朗", "德黑兰", "IR", "Iran", "Tehran"),
	region("IQ", "🇮🇶IQ", "🇮🇶伊拉克", "伊拉克", "巴格达", "IQ", "Iraq", "Baghdad"),
	region("DZ", "🇩🇿DZ", "🇩🇿阿尔及利亚", "阿尔及利亚", "阿尔及尔", "DZ", "Algeria", "Algiers"),
	region("MA", "🇲🇦MA", "🇲🇦摩洛哥", "摩洛哥", "拉巴特", "MA", "Morocco", "Rabat"),
	region("NG", "🇳🇬NG", "🇳🇬尼日利亚", "尼日利亚", "拉各斯", "NG", "Nigeria", "Lagos"),
	region("CL", "🇨🇱CL", "🇨🇱智利", "智利", "圣地亚哥", "CL", "Chile", "Santiago"),
	region("PE", "🇵🇪PE", "🇵🇪秘鲁", "秘鲁", "利马", "PE", "Peru", "Lima"),
	region("CO", "🇨🇴CO", "🇨🇴哥伦比亚", "哥伦比亚", "波哥大", "CO", "Colombia", "Bogotá"),
	region("RO", "🇷🇴RO", "🇷🇴罗马尼亚", "罗马尼亚", "Romania", "RO", "Bucharest", "Cluj-Napoca", "Timișoara"),
	region("RS", "🇷🇸RS", "🇷🇸塞尔维亚", "塞尔维亚", "Serbia", "RS", "Belgrade", "Novi Sad", "Niš"),
	region("LT", "🇱🇹LT", "🇱🇹立陶宛", "立陶宛", "Lithuania", "LT", "Vilnius", "Kaunas", "Klaipėda"),
	region("GT", "🇬🇹GT", "🇬🇹危地马拉", "危地马拉", "Guatemala", "GT", "Guatemala City", "Antigua Guatemala", "Quetzaltenango"),
	region("DK", "🇩🇰DK", "🇩🇰丹麦", "丹麦", "Denmark", "DK", "Copenhagen", "Aarhus", "Odense"),
	region("UA", "🇺🇦UA", "🇺🇦乌克兰", "乌克兰", "Ukraine", "UA", "Kyiv", "Lviv", "Odesa"),
	region("IL", "🇮🇱IL", "🇮🇱以色列", "以色列", "Israel", "IL", "Jerusalem", "Tel Aviv", "Haifa"),
	region("EC", "🇪🇨EC", "🇪🇨厄瓜多尔", "厄瓜多尔", "Ecuador", "EC", "Quito", "Guayaquil", "Cuenca"),
	region("CR", "🇨🇷CR", "🇨🇷哥斯达黎加", "哥斯达黎加", "Costa Rica", "CR", "San José", "Alajuela", "Cartago"),
	region("CY", "🇨🇾CY", "🇨🇾塞浦路斯", "塞浦路斯", "Cyprus", "CY", "Nicosia", "Limassol", "Larnaca"),
	region("BE", "🇧🇪BE", "🇧🇪比利时", "比利时", "Belgium", "BE", "Brussels", "Antwerp", "Ghent"),
	region("BO", "🇧🇴BO", "🇧🇴玻利维亚", "玻利维亚", "Bolivia", "BO", "Sucre", "La Paz", "Santa Cruz"),
}

// defaultFilters — объединение стоп-слов всех вариантов исходного скрипта.
var defaultFilters = []string{
	"广告", "过期", "无效", "测试", "备用", "官网", "账号", "群组", "工单", "到期",
	"刷新", "剩余", "电报", "会员", "解锁", "流量", "超时", "免流", "订阅", "佣金",
	"免翻", "节点", "下载", "更新", "点外", "重置", "建议", "免费", "套餐", "有效",
	"版本", "已用", "失联", "官方", "网址", "客服", "网站", "获取", "机场", "下次",
	"官址", "联系", "邮箱", "学术", "有效期", "群",
	"Days", "Date", "Expire", "Premium", "USE", "USED", "TOTAL", "EXPIRE", "EMAIL", "TEST",
}

var defaultPreserve = []PreserveKeyword{
	{Match: "ChatGPT", Tag: "GPT"},
	{Match: "OpenAI", Tag: "AI"},
}

// DefaultSet возвращает копию встроенных таблиц.
func DefaultSet() Set {
	regions := make([]RegionRule, len(defaultRegions))
	for i, r := range defaultRegions {
		r.Keywords = append([]string(nil), r.Keywords...)
		regions[i] = r
	}
	return Set{
		Regions:  regions,
		Filters:  lo.UniqBy(defaultFilters, strings.ToLower),
		Preserve: append([]PreserveKeyword(nil), defaultPreserve...),
	}
}

var defaultTable = sync.OnceValue(func() *Table {
	return Compile(DefaultSet(), nil)
})

// Default возвращает скомпилированные встроенные таблицы.
func Default() *Table {
	return defaultTable()
}
