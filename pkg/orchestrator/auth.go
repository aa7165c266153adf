package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/agent"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// authOutcome is what one auth-machine turn produced. When completed is
// true the caller may continue the pipeline with the pending intent,
// prepending prefix to whatever comes next.
type authOutcome struct {
	response  string
	buttons   []agent.Button
	completed bool
	prefix    string
	authData  map[string]any
}

var (
	digitsRe = regexp.MustCompile(`\D`)
	otpRe    = regexp.MustCompile(`^\d{4}$|^\d{6}$`)
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

const loginCancelled = "Login cancelled."

// handleAuthStep advances the auth sub-state machine by one user turn.
// The session is mutated in place; the caller saves it.
func (o *Orchestrator) handleAuthStep(ctx context.Context, sess *session.Session, message string) (*authOutcome, error) {
	trimmed := strings.TrimSpace(message)

	if strings.EqualFold(trimmed, "cancel") {
		sess.CurrentStep = session.StepIdle
		sess.Data.TempPhone = ""
		sess.Data.TempName = ""
		sess.Data.ClearPending()
		return &authOutcome{response: loginCancelled}, nil
	}

	switch sess.CurrentStep {
	case session.StepAwaitingPhone:
		return o.authPhone(ctx, sess, trimmed)
	case session.StepAwaitingOTP:
		return o.authOTP(ctx, sess, trimmed)
	case session.StepAwaitingName:
		return o.authName(sess, trimmed)
	case session.StepAwaitingEmail:
		return o.authEmail(ctx, sess, trimmed)
	}
	// Not an auth step; nothing to do.
	return nil, nil
}

func (o *Orchestrator) authPhone(ctx context.Context, sess *session.Session, input string) (*authOutcome, error) {
	digits := digitsRe.ReplaceAllString(input, "")
	if len(digits) < 10 {
		return &authOutcome{
			response: "Please share your 10-digit phone number to continue, or type 'cancel' to exit.",
		}, nil
	}

	if err := o.auth.SendOTP(ctx, digits); err != nil {
		o.log.Error("send otp failed", "error", err)
		return &authOutcome{
			response: "Couldn't send the OTP right now. Please try again in a moment, or type 'cancel' to exit.",
		}, nil
	}

	sess.Data.TempPhone = digits
	sess.CurrentStep = session.StepAwaitingOTP
	return &authOutcome{
		response: "I've sent an OTP to your phone. Please enter the code to verify.",
	}, nil
}

func (o *Orchestrator) authOTP(ctx context.Context, sess *session.Session, input string) (*authOutcome, error) {
	code := strings.TrimSpace(input)
	if !otpRe.MatchString(code) {
		return &authOutcome{
			response: "That doesn't look like the OTP. Please enter the 4 or 6 digit code from the SMS, or type 'cancel' to exit.",
		}, nil
	}

	verified, err := o.auth.VerifyOTP(ctx, sess.Data.TempPhone, code)
	if err != nil {
		o.log.Warn("otp verification failed", "error", err)
		return &authOutcome{
			response: "That OTP didn't match. Please try again, or type 'cancel' to exit.",
		}, nil
	}

	sess.Data.Authenticated = true
	sess.Data.AuthToken = verified.Token
	sess.Data.UserID = &verified.UserID
	sess.CurrentStep = session.StepIdle

	profile, err := o.auth.GetProfile(ctx, verified.Token)
	if err != nil {
		o.log.Warn("profile fetch after login failed", "error", err)
	} else {
		sess.Data.UserName = profile.Name
		if profile.IsPersonalInfo == 0 {
			sess.CurrentStep = session.StepAwaitingName
			return &authOutcome{
				response: "You're verified! What's your name?",
			}, nil
		}
	}

	authData := map[string]any{"token": verified.Token, "user_id": verified.UserID}
	return &authOutcome{
		completed: true,
		prefix:    "✅ Logged in successfully.",
		response:  "✅ Logged in successfully. How can I help you?",
		authData:  authData,
	}, nil
}

func (o *Orchestrator) authName(sess *session.Session, input string) (*authOutcome, error) {
	name := strings.TrimSpace(input)
	if len(name) < 2 {
		return &authOutcome{response: "Please tell me your name (at least 2 characters)."}, nil
	}
	sess.Data.TempName = name
	sess.CurrentStep = session.StepAwaitingEmail
	return &authOutcome{response: "Thanks, " + name + "! And your email address?"}, nil
}

func (o *Orchestrator) authEmail(ctx context.Context, sess *session.Session, input string) (*authOutcome, error) {
	email := strings.TrimSpace(input)
	if !emailRe.MatchString(email) {
		return &authOutcome{
			response: "That doesn't look like an email address. Please try again, or type 'cancel' to exit.",
		}, nil
	}

	if err := o.auth.UpdateUserInfo(ctx, sess.Data.AuthToken, sess.Data.TempName, email); err != nil {
		o.log.Error("profile update failed", "error", err)
		return &authOutcome{
			response: "Couldn't save your details right now. Please try again.",
		}, nil
	}

	if profile, err := o.auth.GetProfile(ctx, sess.Data.AuthToken); err == nil {
		sess.Data.UserName = profile.Name
	} else {
		sess.Data.UserName = sess.Data.TempName
	}
	name := sess.Data.UserName
	sess.Data.TempName = ""
	sess.CurrentStep = session.StepIdle

	return &authOutcome{
		completed: true,
		prefix:    "✅ You're all set, " + name + "!",
		response:  "✅ You're all set, " + name + "! How can I help you?",
	}, nil
}
