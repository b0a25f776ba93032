package collab

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/trezcool/darasa/core"
)

type (
	// Invite contains information needed to invite collaborators to a lesson.
	Invite struct {
		LessonID string   `json:"lesson_id" validate:"required,channelkey"`
		From     Identity `json:"from"`
		Emails   []string `json:"emails" validate:"required,min=1,dive,email"`
	}

	// InviteService emails collaborators a link to a lesson's channel.
	InviteService struct {
		mailSvc core.EmailService
	}
)

func NewInviteService(mailSvc core.EmailService) *InviteService {
	return &InviteService{mailSvc: mailSvc}
}

func (inv *Invite) Validate() error {
	inv.LessonID = core.CleanString(inv.LessonID)
	for i, email := range inv.Emails {
		inv.Emails[i] = core.CleanString(email, true /* lower */)
	}
	return core.Validate.Struct(inv)
}

func (svc *InviteService) Send(inv Invite) error {
	if err := inv.Validate(); err != nil {
		return err
	}

	from := inv.From.Name
	if from == "" {
		from = inv.From.Email
	}
	body := new(strings.Builder)
	fmt.Fprintf(body, "%s invited you to collaborate on a lesson.\n\n", from)
	fmt.Fprintf(body, "Join here: %s/lessons/%s\n", core.Conf.FrontendBaseURL, inv.LessonID)

	to := make([]mail.Address, 0, len(inv.Emails))
	for _, email := range inv.Emails {
		to = append(to, mail.Address{Address: email})
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      to,
		Subject: from + " invited you to collaborate",
		BodyStr: body.String(),
	})
	return nil
}
