package notify

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

var errUnencryptedAuth = errors.New("refusing to send credentials over an unencrypted connection")

// loginAuth authenticates with PLAIN when the server offers it and falls
// back to LOGIN. Unlike smtp.PlainAuth it can be told that a plaintext
// session to a remote host is acceptable, which is what encryption "none"
// asks for.
type loginAuth struct {
	username, password string
	host               string
	allowUnencrypted   bool
	mech               string
}

func newLoginAuth(username, password, host string, allowUnencrypted bool) smtp.Auth {
	return &loginAuth{username: username, password: password, host: host, allowUnencrypted: allowUnencrypted}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !a.allowUnencrypted {
		return "", nil, errUnencryptedAuth
	}
	if server.Name != a.host {
		return "", nil, fmt.Errorf("wrong host name %q, expected %q", server.Name, a.host)
	}
	if offers(server.Auth, "PLAIN") || !offers(server.Auth, "LOGIN") {
		a.mech = "PLAIN"
		return a.mech, []byte("\x00" + a.username + "\x00" + a.password), nil
	}
	a.mech = "LOGIN"
	return a.mech, nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	if a.mech != "LOGIN" {
		return nil, fmt.Errorf("unexpected %s challenge %q", a.mech, fromServer)
	}
	switch prompt := strings.ToLower(strings.TrimSpace(string(fromServer))); {
	case strings.HasPrefix(prompt, "username"):
		return []byte(a.username), nil
	case strings.HasPrefix(prompt, "password"):
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("unexpected LOGIN challenge %q", fromServer)
	}
}

func offers(mechs []string, name string) bool {
	for _, m := range mechs {
		if strings.EqualFold(m, name) {
			return true
		}
	}
	return false
}
