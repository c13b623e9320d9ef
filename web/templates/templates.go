// Package templates renders the account pages. Components are plain
// templ.Component values so handlers render them the same way they would
// generated ones.
package templates

import (
	"context"
	"io"

	"github.com/Ryan-Har/truckbook/pkg/flash"
	"github.com/a-h/templ"
)

const siteName = "Truck Booking"

// writer collects the first write error so components read top to bottom.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) component(ctx context.Context, c templ.Component) {
	if w.err == nil && c != nil {
		w.err = c.Render(ctx, w.w)
	}
}

// Layout wraps content in the page shell. Notices render above the content.
func Layout(title string, notices flash.Notices, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		w.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		w.text(title + " | " + siteName)
		w.raw(`</title></head><body><main>`)
		w.component(ctx, Flashes(notices))
		w.component(ctx, content)
		w.raw(`</main></body></html>`)
		return w.err
	})
}

// Flashes renders each notice once, tagged with its kind.
func Flashes(notices flash.Notices) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if len(notices) == 0 {
			return nil
		}
		w := &writer{w: out}
		w.raw(`<ul class="flashes">`)
		for _, n := range notices {
			w.raw(`<li class="flash flash-`)
			w.text(n.Kind.String())
			w.raw(`" role="alert">`)
			w.text(n.Text)
			w.raw(`</li>`)
		}
		w.raw(`</ul>`)
		return w.err
	})
}

func credentialsForm(action, submit, email string, confirm bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<form method="post" action="`)
		w.text(action)
		w.raw(`"><label for="email">Email</label><input id="email" name="email" type="email" autocomplete="email" required value="`)
		w.text(email)
		w.raw(`"><label for="password">Password</label><input id="password" name="password" type="password" required>`)
		if confirm {
			w.raw(`<label for="confirm">Confirm password</label><input id="confirm" name="confirm" type="password" required>`)
		}
		w.raw(`<button type="submit">`)
		w.text(submit)
		w.raw(`</button></form>`)
		return w.err
	})
}

// SignupPage is the registration form. email is echoed back after a failed
// attempt; passwords never are.
func SignupPage(email string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>Create an account</h1>`)
		w.component(ctx, credentialsForm("/signup", "Sign up", email, true))
		w.raw(`<p>Already registered? <a href="/login">Log in</a></p>`)
		return w.err
	})
}

func LoginPage(email string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>Log in</h1>`)
		w.component(ctx, credentialsForm("/login", "Log in", email, false))
		w.raw(`<p>New here? <a href="/signup">Create an account</a></p>`)
		return w.err
	})
}

// HomePage is the signed-in landing page.
func HomePage(email string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.raw(`<h1>Welcome back</h1><p>Signed in as <strong>`)
		w.text(email)
		w.raw(`</strong></p><nav><a href="/logout">Log out</a> <a href="/logout?all=1">Log out everywhere</a></nav>`)
		return w.err
	})
}
