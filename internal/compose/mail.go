package compose

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/luckyjian/dgwatch/internal/alert"
	"github.com/luckyjian/dgwatch/internal/analysis"
)

// SubjectTitle is the fixed part of every mail subject.
const SubjectTitle = "Opera DataGuard状态监测报告"

// Subject formats the mail subject for a run with overall severity sev.
func Subject(sev alert.Severity, now time.Time) string {
	return fmt.Sprintf("[%s] %s - %s", sev.Tag(), now.Format("2006-01-02 15:04"), SubjectTitle)
}

type bodyData struct {
	Title      string
	Timestamp  string
	BadgeClass string
	Tag        string
	Headline   string
	Text       string
	Attachment bool
}

var bodyTemplate = template.Must(template.New("body").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; line-height: 1.6; color: #333; background-color: #f5f5f5; padding: 20px; }
.container { max-width: 1200px; margin: 0 auto; background: white; border-radius: 10px; box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1); overflow: hidden; }
.header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 30px; text-align: center; }
.content { padding: 30px; }
.alert-badge { display: inline-block; padding: 8px 16px; border-radius: 20px; font-weight: bold; font-size: 14px; margin-bottom: 20px; }
.alert-normal { background-color: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
.alert-warning { background-color: #fff3cd; color: #856404; border: 1px solid #ffeaa7; }
.alert-critical { background-color: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
.report-content { font-family: 'Courier New', monospace; font-size: 13px; white-space: pre-wrap; background: white; padding: 15px; border: 1px solid #e9ecef; }
.footer { background: #f8f9fa; padding: 20px; text-align: center; color: #6c757d; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>Opera DataGuard</h1>
<div>数据库状态监测报告</div>
<div>{{.Timestamp}}</div>
</div>
<div class="content">
<div class="alert-badge {{.BadgeClass}}">{{.Tag}} - {{.Headline}}</div>
<h3>详细分析结果</h3>
<div class="report-content">{{.Text}}</div>
{{- if .Attachment}}
<p><strong>附件说明：</strong><br>
• HTML详细报告：包含完整的数据库状态信息<br>
• 检查输出文件：原始监控数据<br>
• 日报输出文件：每日统计数据</p>
{{- end}}
</div>
<div class="footer">
<p>此邮件由 Opera DataGuard 自动监控系统生成</p>
<p>如有问题，请联系数据库管理员</p>
</div>
</div>
</body>
</html>
`))

// HTMLBody renders the mail body around the composed text. The badge class
// follows the overall severity; text is escaped by the template. The
// attachment note is rendered only when the report file was attached.
func HTMLBody(r *analysis.Report, text string, now time.Time, attached bool) (string, error) {
	sev := r.Overall()
	data := bodyData{
		Title:      SubjectTitle,
		Timestamp:  now.Format("2006年01月02日 15:04"),
		BadgeClass: sev.BadgeClass(),
		Tag:        sev.Tag(),
		Headline:   sev.Headline(),
		Text:       text,
		Attachment: attached,
	}
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render mail body: %w", err)
	}
	return buf.String(), nil
}
