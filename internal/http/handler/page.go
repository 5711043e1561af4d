package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

const flashCookie = "flash"

// Page is the JSON document every page route answers with. The client
// renders Component with Props.
type Page struct {
	Component string `json:"component"`
	Props     any    `json:"props"`
	URL       string `json:"url"`
	Flash     Flash  `json:"flash"`
}

// Flash is a one-shot message shown on the page after a redirect.
type Flash struct {
	Success string `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (f Flash) empty() bool {
	return f.Success == "" && f.Error == ""
}

type Pages struct {
	secureCookies bool
}

func NewPages(secureCookies bool) *Pages {
	return &Pages{secureCookies: secureCookies}
}

// Render writes a page and consumes any pending flash message.
func (p *Pages) Render(w http.ResponseWriter, r *http.Request, status int, component string, props any) {
	page := Page{
		Component: component,
		Props:     props,
		URL:       r.URL.RequestURI(),
		Flash:     p.takeFlash(w, r),
	}
	w.Header().Set("Vary", "Cookie")
	WriteJSON(w, status, page)
}

// Redirect answers a mutation with 303 See Other so the browser follows
// with a GET, leaving flash for the next page.
func (p *Pages) Redirect(w http.ResponseWriter, r *http.Request, to string, flash Flash) {
	if !flash.empty() {
		p.setFlash(w, flash)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (p *Pages) setFlash(w http.ResponseWriter, flash Flash) {
	data, err := json.Marshal(flash)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Pages) takeFlash(w http.ResponseWriter, r *http.Request) Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return Flash{}
	}
	p.clearCookie(w, flashCookie)

	data, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return Flash{}
	}
	var flash Flash
	if err := json.Unmarshal(data, &flash); err != nil {
		return Flash{}
	}
	return flash
}

func (p *Pages) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (p *Pages) setSession(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
