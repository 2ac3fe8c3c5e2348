package api

import (
	"context"
	"net/http"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == "ADMIN"
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
	// Cookie is the Cookie header value built from the API's Set-Cookie headers.
	Cookie string `json:"-"`
}

func (c *Client) Me(ctx context.Context, creds Credentials) (*User, error) {
	var user User
	if err := c.get(ctx, "/api/auth/me", nil, creds, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req, err := jsonRequest(http.MethodPost, "/api/auth/login", Credentials{}, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var result LoginResult
	cookies, err := c.do(ctx, req, &result)
	if err != nil {
		return nil, err
	}
	result.Cookie = cookieHeader(cookies)
	return &result, nil
}

func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.send(ctx, http.MethodPost, "/api/auth/logout", creds, nil, nil)
}

func cookieHeader(cookies []*http.Cookie) string {
	header := ""
	for i, ck := range cookies {
		if i > 0 {
			header += "; "
		}
		header += ck.Name + "=" + ck.Value
	}
	return header
}
