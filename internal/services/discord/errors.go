package discord

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"switchscan/internal/services"
)

const (
	closeAuthenticationFailed = 4004
	closeDisallowedIntents    = 4014
)

// classifyOpen maps gateway handshake failures. Close code 4014 means a
// privileged intent is not enabled for the application.
func classifyOpen(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case closeDisallowedIntents:
			return services.Wrap(services.ErrCapability, component, "open", "privileged intent not enabled", err)
		case closeAuthenticationFailed:
			return services.Wrap(services.ErrConfiguration, component, "open", "authentication failed", err)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "4014") || strings.Contains(msg, "disallowed intent") {
		return services.Wrap(services.ErrCapability, component, "open", "privileged intent not enabled", err)
	}
	if strings.Contains(msg, "4004") || strings.Contains(msg, "authentication failed") {
		return services.Wrap(services.ErrConfiguration, component, "open", "authentication failed", err)
	}
	return services.Wrap(services.ErrTransport, component, "open", "gateway connect", err)
}

func classifyREST(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, component, operation, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch code := restErr.Response.StatusCode; {
		case code == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, component, operation, "not found", err)
		case code == http.StatusUnauthorized:
			return services.Wrap(services.ErrConfiguration, component, operation, "unauthorized", err)
		case code == http.StatusForbidden:
			return services.Wrap(services.ErrCapability, component, operation, "missing permission", err)
		case code == http.StatusTooManyRequests || code >= 500:
			return services.Wrap(services.ErrTransport, component, operation, "service unavailable", err)
		case code >= 400:
			return services.Wrap(services.ErrData, component, operation, "request rejected", err)
		}
	}
	return services.Wrap(services.ErrTransport, component, operation, "request failed", err)
}
