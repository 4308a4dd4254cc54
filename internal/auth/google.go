package auth

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleSignIn implements SignIn with Google OAuth 2.0. The user id is the
// stable Google account id from the userinfo endpoint.
type GoogleSignIn struct {
	cfg *oauth2.Config
	// overridable for tests
	userinfoEndpoint string
}

func NewGoogleSignIn(clientID, clientSecret, redirectURL string) *GoogleSignIn {
	return &GoogleSignIn{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				goauth2.OpenIDScope,
				goauth2.UserinfoEmailScope,
				goauth2.UserinfoProfileScope,
			},
		},
	}
}

func (g *GoogleSignIn) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// SignIn exchanges the authorization code and fetches the account identity.
func (g *GoogleSignIn) SignIn(ctx context.Context, code string) (User, error) {
	if strings.TrimSpace(code) == "" {
		return User{}, fmt.Errorf("%w: missing authorization code", ErrSignInFailed)
	}

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return User{}, fmt.Errorf("%w: token exchange: %w", ErrSignInFailed, err)
	}

	opts := []option.ClientOption{option.WithTokenSource(g.cfg.TokenSource(ctx, tok))}
	if g.userinfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.userinfoEndpoint))
	}
	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return User{}, fmt.Errorf("%w: userinfo client: %w", ErrSignInFailed, err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return User{}, fmt.Errorf("%w: userinfo: %w", ErrSignInFailed, err)
	}
	if info.Id == "" {
		return User{}, fmt.Errorf("%w: userinfo returned no id", ErrSignInFailed)
	}

	return User{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}

// DevSignIn signs everyone in as the same fixed user. Local use only.
type DevSignIn struct {
	User        User
	CallbackURL string
}

func NewDevSignIn(userID string) *DevSignIn {
	return &DevSignIn{
		User:        User{ID: userID, Name: "Developer"},
		CallbackURL: "/auth/callback",
	}
}

func (d *DevSignIn) AuthCodeURL(state string) string {
	return d.CallbackURL + "?code=dev&state=" + state
}

func (d *DevSignIn) SignIn(_ context.Context, code string) (User, error) {
	if code != "dev" {
		return User{}, fmt.Errorf("%w: unexpected dev code", ErrSignInFailed)
	}
	return d.User, nil
}
