package firebase

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"google.golang.org/api/googleapi"

	"taskboard/apperrors"
)

// providerCodes maps Identity Toolkit error messages to kinds. The provider
// sometimes appends detail after the code ("WEAK_PASSWORD : Password should
// be at least 6 characters"), so matching is by prefix.
var providerCodes = []struct {
	code string
	kind apperrors.Kind
}{
	{"INVALID_LOGIN_CREDENTIALS", apperrors.KindInvalidCredentials},
	{"INVALID_PASSWORD", apperrors.KindInvalidCredentials},
	{"EMAIL_NOT_FOUND", apperrors.KindInvalidCredentials},
	{"USER_DISABLED", apperrors.KindInvalidCredentials},
	{"MISSING_PASSWORD", apperrors.KindInvalidCredentials},
	{"INVALID_EMAIL", apperrors.KindMalformedEmail},
	{"MISSING_EMAIL", apperrors.KindMalformedEmail},
	{"WEAK_PASSWORD", apperrors.KindWeakPassword},
	{"EMAIL_EXISTS", apperrors.KindEmailTaken},
	{"TOO_MANY_ATTEMPTS_TRY_LATER", apperrors.KindProviderUnavailable},
	{"OPERATION_NOT_ALLOWED", apperrors.KindProviderUnavailable},
	{"INVALID_ID_TOKEN", apperrors.KindSessionInvalid},
	{"TOKEN_EXPIRED", apperrors.KindSessionInvalid},
	{"USER_NOT_FOUND", apperrors.KindSessionInvalid},
	{"CREDENTIAL_TOO_OLD_LOGIN_AGAIN", apperrors.KindSessionInvalid},
}

// Classify maps any error returned by the identity provider to a kind.
// Errors that already carry a kind keep it.
func Classify(err error) apperrors.Kind {
	if err == nil {
		return apperrors.KindInternal
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if kind, ok := classifyMessage(apiErr.Message); ok {
			return kind
		}
		for _, item := range apiErr.Errors {
			if kind, ok := classifyMessage(item.Message); ok {
				return kind
			}
		}
		if apiErr.Code >= http.StatusInternalServerError || apiErr.Code == http.StatusTooManyRequests {
			return apperrors.KindProviderUnavailable
		}
		return apperrors.KindInternal
	}

	switch {
	case auth.IsIDTokenExpired(err), auth.IsIDTokenRevoked(err), auth.IsIDTokenInvalid(err),
		auth.IsUserDisabled(err), auth.IsUserNotFound(err):
		return apperrors.KindSessionInvalid
	case auth.IsEmailAlreadyExists(err):
		return apperrors.KindEmailTaken
	case errorutils.IsUnavailable(err), errorutils.IsDeadlineExceeded(err):
		return apperrors.KindProviderUnavailable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.KindProviderUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperrors.KindProviderUnavailable
	}
	return apperrors.KindInternal
}

func classifyMessage(msg string) (apperrors.Kind, bool) {
	msg = strings.TrimSpace(msg)
	for _, pc := range providerCodes {
		if strings.HasPrefix(msg, pc.code) {
			return pc.kind, true
		}
	}
	return apperrors.KindInternal, false
}

// wrap attaches the classified kind to err.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return apperrors.E(Classify(err), op, err)
}
