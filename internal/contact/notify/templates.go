package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/mssola/useragent"

	"huanbo/internal/contact/models"
)

const displayTimeLayout = "2006/1/2 15:04:05"

var companyTemplate = template.Must(template.New("company").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2c5282; border-bottom: 2px solid #2c5282; padding-bottom: 10px;">新的客户咨询</h2>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #2d3748; margin-top: 0;">客户信息</h3>
    <p><strong>姓名:</strong> {{.Name}}</p>
    <p><strong>联系方式:</strong> {{.Contact}}</p>
    <p><strong>公司名称:</strong> {{or .Company "未填写"}}</p>
    <p><strong>服务类型:</strong> {{or .ServiceType "未选择"}}</p>
    <p><strong>货物类型:</strong> {{or .CargoType "未填写"}}</p>
    <p><strong>目的地:</strong> {{or .Destination "未填写"}}</p>
  </div>
  <div style="background: white; padding: 20px; border: 1px solid #e2e8f0; border-radius: 8px;">
    <h3 style="color: #2d3748; margin-top: 0;">详细需求</h3>
    <p style="white-space: pre-wrap; line-height: 1.6;">{{.Message}}</p>
  </div>
  <div style="margin-top: 20px; padding: 15px; background: #edf2f7; border-radius: 8px; font-size: 12px; color: #718096;">
    <p><strong>提交时间:</strong> {{.Time}}</p>
    <p><strong>客户端IP:</strong> {{.IP}}</p>
    <p><strong>客户端:</strong> {{.Client}}</p>
    <p><strong>提交ID:</strong> {{.ID}}</p>
  </div>
</div>`))

var customerTemplate = template.Must(template.New("customer").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="text-align: center; margin-bottom: 30px;">
    <h1 style="color: #2c5282; font-size: 28px;">环博物流</h1>
    <p style="color: #718096;">专业的国际货运与进出口服务</p>
  </div>
  <h2 style="color: #2d3748;">尊敬的 {{.Name}}，您好！</h2>
  <p style="line-height: 1.6; color: #4a5568;">感谢您选择环博物流！我们已经收到您的咨询信息，我们的专业团队会在24小时内与您联系，为您提供最优质的物流解决方案。</p>
  <div style="background: #f8fafc; padding: 20px; border-radius: 8px; margin: 20px 0; border-left: 4px solid #2c5282;">
    <h3 style="color: #2d3748; margin-top: 0;">您的咨询信息</h3>
    <p><strong>咨询编号:</strong> {{.ID}}</p>
    <p><strong>提交时间:</strong> {{.Time}}</p>
    <p><strong>服务类型:</strong> {{or .ServiceType "未选择"}}</p>
  </div>
  <div style="background: white; padding: 20px; border: 1px solid #e2e8f0; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #2d3748; margin-top: 0;">联系我们</h3>
    <p><strong>客服电话:</strong> +86 400-123-4567</p>
    <p><strong>邮箱:</strong> info@huanbo-logistics.com</p>
    <p><strong>地址:</strong> 上海市浦东新区物流大道123号</p>
    <p><strong>营业时间:</strong> 周一至周日 8:00-20:00</p>
  </div>
  <p style="text-align: center; color: #718096; font-size: 14px; margin-top: 30px;">此邮件为系统自动发送，请勿直接回复。如有疑问，请联系我们的客服团队。</p>
</div>`))

type templateData struct {
	models.Submission
	Time   string
	Client string
}

func newTemplateData(sub models.Submission, loc *time.Location) templateData {
	return templateData{
		Submission: sub,
		Time:       sub.Timestamp.In(loc).Format(displayTimeLayout),
		Client:     describeClient(sub.UserAgent),
	}
}

// describeClient renders a User-Agent as "browser version / OS".
func describeClient(ua string) string {
	if ua == "" {
		return "未知"
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		name, _ := parsed.Browser()
		return "爬虫 " + name
	}
	name, version := parsed.Browser()
	desc := name
	if version != "" {
		desc += " " + version
	}
	if osName := parsed.OS(); osName != "" {
		desc += " / " + osName
	}
	if parsed.Mobile() {
		desc += " (移动端)"
	}
	if desc == "" {
		return ua
	}
	return desc
}

func companySubject(sub models.Submission) string {
	return fmt.Sprintf("【新客户咨询】来自 %s 的物流需求", sub.Name)
}

const customerSubject = "感谢您的咨询 - 环博物流"

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}
