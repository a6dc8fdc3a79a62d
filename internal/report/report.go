package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/logistics-alert/internal/news"
	"github.com/deusflow/logistics-alert/internal/scraper"
	"github.com/deusflow/logistics-alert/internal/search"
)

const (
	WeatherTitle = "欧洲物流天气预警"
	NewsTitle    = "欧洲物流突发事件预警"

	timeLayout = "2006-01-02 15:04:05"

	weatherPreviewTitle = 50
	weatherSummary      = 250
	newsSummary         = 280
)

// Options carries the context printed in report headers.
type Options struct {
	Now       time.Time
	Countries []string
	Source    string // e.g. "Tavily Real-time Search"
	Brief     string // optional AI brief, already bilingual markdown
}

var countryNames = map[string]string{
	"Germany":        "德国",
	"France":         "法国",
	"Netherlands":    "荷兰",
	"Belgium":        "比利时",
	"Poland":         "波兰",
	"Italy":          "意大利",
	"Spain":          "西班牙",
	"Austria":        "奥地利",
	"Czech Republic": "捷克",
	"Czechia":        "捷克",
	"Switzerland":    "瑞士",
	"Denmark":        "丹麦",
	"Sweden":         "瑞典",
	"Hungary":        "匈牙利",
	"Europe":         "欧洲",
}

// Area renders the monitored countries as "德国、法国 | Germany, France".
func Area(countries []string) string {
	if len(countries) == 0 {
		return "欧洲 | Europe"
	}
	zh := make([]string, len(countries))
	for i, c := range countries {
		if name, ok := countryNames[c]; ok {
			zh[i] = name
		} else {
			zh[i] = c
		}
	}
	return strings.Join(zh, "、") + " | " + strings.Join(countries, ", ")
}

func (o Options) timestamp() string {
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.Format(timeLayout)
}

func (o Options) source() string {
	if o.Source == "" {
		return "Real-time Search"
	}
	return o.Source
}

func summary(content string, n int) string {
	return scraper.Truncate(scraper.CleanSnippet(content), n)
}

// Weather renders the daily weather digest. It is produced even with no results.
func Weather(results []search.Result, opts Options) string {
	var b strings.Builder

	b.WriteString("# 🌤️ 欧洲物流天气预警 | Europe Logistics Weather Alert\n\n")
	b.WriteString("**📅 报告时间 | Report Time:** " + opts.timestamp() + "\n")
	b.WriteString("**📍 监控区域 | Monitoring Area:** " + Area(opts.Countries) + "\n")
	b.WriteString("**🔍 数据来源 | Data Source:** " + opts.source() + "\n\n")
	b.WriteString("---\n\n")

	if len(results) == 0 {
		b.WriteString("## ✅ 暂无重大天气预警 | No Major Weather Alerts\n\n")
		b.WriteString("**中文：** 今日监控区域内暂无影响物流运输的重大天气预警，运输条件正常。\n\n")
		b.WriteString("**English:** No significant weather alerts affecting logistics operations in the monitored regions today. Transport conditions are normal.\n\n")
		b.WriteString("---\n\n")
		b.WriteString("_💡 提示：系统将持续监控天气变化 | System continues to monitor weather conditions_")
		return b.String()
	}

	b.WriteString("## 📋 今日概览\n\n")
	b.WriteString(fmt.Sprintf("**今日监控到 %d 条天气预警信息。**\n\n", len(results)))

	var preview []string
	for i, r := range results {
		if i == 3 {
			break
		}
		if r.Title != "" {
			preview = append(preview, fmt.Sprintf("%d. %s", i+1, scraper.Truncate(r.Title, weatherPreviewTitle)))
		}
	}
	if len(preview) > 0 {
		b.WriteString("主要预警包括：\n")
		for _, p := range preview {
			b.WriteString("- " + p + "\n")
		}
	}
	if len(results) > 3 {
		b.WriteString(fmt.Sprintf("\n还有 %d 条其他预警，详见下方。\n", len(results)-3))
	}
	b.WriteString("\n**建议：** 请关注天气变化，必要时调整运输计划或路线安排。\n\n")
	b.WriteString("---\n\n")

	b.WriteString("## ⚠️ 天气预警详情 | Weather Alert Details\n\n")
	b.WriteString(fmt.Sprintf("**🔔 预警数量 | Alert Count:** %d 条 | %d alerts\n\n", len(results), len(results)))
	b.WriteString("---\n\n")

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "无标题"
		}
		b.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, title))
		b.WriteString("**📄 详情 | Details:**\n\n")
		b.WriteString(summary(r.Content, weatherSummary) + "\n\n")
		if r.URL != "" {
			b.WriteString("**🔗 来源链接 | Source:** " + r.URL + "\n\n")
		}
		b.WriteString("---\n\n")
	}

	b.WriteString("💡 **温馨提示 | Tips:**\n")
	b.WriteString("- 🚚 请关注天气变化对物流运输的影响\n")
	b.WriteString("- 🚛 Please monitor weather impacts on logistics operations\n")
	b.WriteString("- 📞 如有紧急情况请及时调整运输计划\n")
	b.WriteString("- 📱 Adjust transport plans promptly if necessary")
	return b.String()
}

// News renders the incident alert for newly found items.
// It returns "" when there is nothing to report.
func News(items []news.Item, opts Options) string {
	if len(items) == 0 {
		return ""
	}

	var b strings.Builder
	n := len(items)

	b.WriteString("# 🚨 欧洲物流突发事件预警 | Europe Logistics Incident Alert\n\n")
	b.WriteString("**📅 报告时间 | Report Time:** " + opts.timestamp() + "\n")
	b.WriteString(fmt.Sprintf("**📊 新增事件 | New Incidents:** %d 条 | %d alerts\n", n, n))
	b.WriteString("**📍 监控区域 | Monitoring Area:** " + Area(opts.Countries) + "\n")
	b.WriteString("**🔍 数据来源 | Data Source:** " + opts.source() + " (Past 24 hours)\n\n")
	b.WriteString("---\n\n")

	b.WriteString("## 📋 今日概览\n\n")
	b.WriteString(fmt.Sprintf("**过去24小时内新增 %d 条物流突发事件。**\n\n", n))

	var high, medium, low int
	for _, it := range items {
		switch it.Urgency() {
		case news.High:
			high++
		case news.Medium:
			medium++
		default:
			low++
		}
	}

	var parts []string
	if high > 0 {
		parts = append(parts, fmt.Sprintf("🔴 高紧急 %d 条", high))
	}
	if medium > 0 {
		parts = append(parts, fmt.Sprintf("🟡 中等 %d 条", medium))
	}
	if low > 0 {
		parts = append(parts, fmt.Sprintf("🟢 低紧急 %d 条", low))
	}
	b.WriteString("**紧急程度分布：** " + strings.Join(parts, " | ") + "\n\n")

	if events := news.DetectEvents(items); len(events) > 0 {
		labels := make([]string, len(events))
		for i, e := range events {
			labels[i] = e.Chinese
		}
		b.WriteString("**涉及类型：** " + strings.Join(labels, " | ") + "\n\n")
	}

	if high > 0 {
		b.WriteString("**⚠️ 重点关注：** 发现高紧急事件，建议立即评估对物流的影响并采取应对措施。\n\n")
	} else {
		b.WriteString("**📊 情况评估：** 当前事件紧急程度较低，建议持续关注事态发展。\n\n")
	}
	b.WriteString("---\n\n")

	if brief := strings.TrimSpace(opts.Brief); brief != "" {
		b.WriteString("## 🤖 AI 摘要 | AI Brief\n\n")
		b.WriteString(brief + "\n\n")
		b.WriteString("---\n\n")
	}

	b.WriteString("## ⚠️ 新增事件详情 | New Incident Details\n\n")
	b.WriteString("**⚡ 中文：** 以下为过去24小时内新增的物流相关事件，请注意关注\n")
	b.WriteString("**⚡ English:** Following incidents occurred in the past 24 hours, please pay attention\n\n")

	for i, it := range items {
		title := it.Title
		if title == "" {
			title = "无标题"
		}
		b.WriteString(fmt.Sprintf("### 📰 %d. %s\n\n", i+1, title))
		b.WriteString("**⚡ 紧急程度 | Urgency:** " + it.Urgency().Label() + "\n\n")
		b.WriteString("**📋 事件描述 | Description:**\n\n")
		b.WriteString(summary(it.Content, newsSummary) + "\n\n")
		if it.URL != "" {
			b.WriteString("**🔗 详情链接 | Source:** " + it.URL + "\n\n")
		}
		b.WriteString("---\n\n")
	}

	b.WriteString("💡 **重要提示 | Important Notes:**\n\n")
	b.WriteString("✅ **中文：** 系统已记录这些事件，相同事件不会重复推送\n\n")
	b.WriteString("✅ **English:** These incidents have been recorded and will not be pushed repeatedly\n\n")
	b.WriteString("📞 **中文：** 如遇影响请及时调整物流计划或联系相关部门\n\n")
	b.WriteString("📱 **English:** Please adjust logistics plans or contact relevant departments if affected")
	return b.String()
}
