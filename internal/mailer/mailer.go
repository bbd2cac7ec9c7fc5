package mailer

import (
	"errors"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

// ErrUnsupportedType 表示消息无法被处理，重新入队也没有意义
var ErrUnsupportedType = errors.New("不支持的邮件类型")

type kind struct {
	template string
	subject  string
}

var kinds = map[string]kind{
	domain.MailTypeCreateUser: {
		template: "new_account_email.html",
		subject:  "课程排课系统 - 账户信息",
	},
	domain.MailTypeScheduleRunFinished: {
		template: "schedule_run_finished_email.html",
		subject:  "课程排课系统 - 排课运行已结束",
	},
}

type Composer struct {
	from        string
	templateDir string
}

func NewComposer(from string, templateDir string) *Composer {
	return &Composer{
		from:        from,
		templateDir: templateDir,
	}
}

// Compose 根据消息类型选择模板并构建邮件
// 消息中的 data 经过 JSON 反序列化，模板中使用 JSON 字段名访问
func (c *Composer) Compose(m domain.MailMessage) (*mail.Msg, error) {
	k, ok := kinds[m.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, m.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	tmpl, err := template.ParseFiles(filepath.Join(c.templateDir, k.template))
	if err != nil {
		return nil, fmt.Errorf("无法解析邮件模板: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, m.Data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(k.subject)

	return msg, nil
}
