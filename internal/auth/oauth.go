package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderGitHub is the provider key stored on social apps and stars.
const ProviderGitHub = "github"

// DefaultGitHubAPIURL is the REST API root used after the token exchange.
const DefaultGitHubAPIURL = "https://api.github.com"

// SocialLogin is what an OAuth provider tells us about the person logging in.
//
// Username is a pointer because providers may omit it; callers check for
// nil instead of probing the profile. ExtraData keeps the provider's raw
// profile so diagnostics can show which keys came back.
type SocialLogin struct {
	Provider       string
	UID            string
	EmailAddresses []string
	Username       *string
	AvatarURL      string
	ExtraData      map[string]any
}

// ExtraDataKeys returns the raw profile's keys in sorted order.
func (l *SocialLogin) ExtraDataKeys() []string {
	keys := make([]string, 0, len(l.ExtraData))
	for k := range l.ExtraData {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// PrimaryEmail is the first address the provider returned, or "".
func (l *SocialLogin) PrimaryEmail() string {
	if len(l.EmailAddresses) == 0 {
		return ""
	}
	return l.EmailAddresses[0]
}

// GitHubID parses UID as GitHub's numeric account id.
func (l *SocialLogin) GitHubID() (int64, error) {
	id, err := strconv.ParseInt(l.UID, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("auth: %q is not a GitHub account id", l.UID)
	}
	return id, nil
}

// githubProfile is the slice of GET /user we use.
type githubProfile struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider runs the OAuth Authorization Code flow against GitHub.
//
// The code-for-token exchange is server to server and uses the client
// secret; the access token never reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider builds a provider from the OAuth app credentials.
// callbackURL must match the app's registered callback exactly.
//
// Scopes:
//   - read:user   profile (id, login, avatar)
//   - user:email  email addresses, including private ones
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: DefaultGitHubAPIURL,
	}
}

// AuthURL is where the login handler redirects. state must also be stored
// in a cookie and compared on callback to stop CSRF.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and loads the
// user's profile and email addresses with it.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*SocialLogin, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}
	client := p.config.Client(ctx, token)

	var raw map[string]any
	if err := p.getJSON(client, "/user", &raw); err != nil {
		return nil, err
	}
	// Decode the typed view from the same payload.
	buf, _ := json.Marshal(raw)
	var profile githubProfile
	if err := json.Unmarshal(buf, &profile); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if profile.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	login := &SocialLogin{
		Provider:  ProviderGitHub,
		UID:       strconv.FormatInt(profile.ID, 10),
		AvatarURL: profile.AvatarURL,
		ExtraData: raw,
	}
	if profile.Login != "" {
		login.Username = &profile.Login
	}

	// /user only shows a public email. /user/emails lists them all; a
	// failure there degrades to the public one rather than failing login.
	var emails []githubEmail
	if err := p.getJSON(client, "/user/emails", &emails); err == nil {
		login.EmailAddresses = orderEmails(emails)
	}
	if len(login.EmailAddresses) == 0 && profile.Email != "" {
		login.EmailAddresses = []string{profile.Email}
	}

	return login, nil
}

func (p *GitHubProvider) getJSON(client *http.Client, path string, out any) error {
	resp, err := client.Get(p.apiURL + path)
	if err != nil {
		return fmt.Errorf("auth: calling GitHub %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth: GitHub %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: decoding GitHub %s response: %w", path, err)
	}
	return nil
}

// orderEmails keeps verified addresses, primary first.
func orderEmails(emails []githubEmail) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e.Verified && e.Primary {
			out = append(out, e.Email)
		}
	}
	for _, e := range emails {
		if e.Verified && !e.Primary {
			out = append(out, e.Email)
		}
	}
	return out
}
