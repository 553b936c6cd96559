package discord

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/bwmarrin/discordgo"

	perr "msgstats/internal/platform/errors"
)

// mapErr turns discordgo failures into platform error codes the collector branches on
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var re *discordgo.RESTError
	if errors.As(err, &re) {
		status, code := 0, 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		if re.Message != nil {
			code = re.Message.Code
		}
		switch {
		case status == http.StatusForbidden,
			code == discordgo.ErrCodeMissingAccess,
			code == discordgo.ErrCodeMissingPermissions:
			return perr.Wrapf(err, perr.ErrorCodeForbidden, "discord %s: access denied", what)
		case status == http.StatusUnauthorized:
			return perr.Wrapf(err, perr.ErrorCodeUnauthorized, "discord %s: unauthorized", what)
		case status == http.StatusNotFound:
			return perr.Wrapf(err, perr.ErrorCodeNotFound, "discord %s: not found", what)
		case status == http.StatusTooManyRequests:
			return perr.Wrapf(err, perr.ErrorCodeTooManyRequests, "discord %s: rate limited", what)
		case status >= 500:
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord %s: upstream %d", what, status)
		}
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "discord %s: status %d", what, status)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "discord %s: transport", what)
	}
	return perr.Wrapf(err, perr.ErrorCodeUnknown, "discord %s", what)
}
