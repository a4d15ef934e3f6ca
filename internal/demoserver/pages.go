package demoserver

// Header profile names. Every page offers all three.
const (
	ProfileInsecure = "insecure"
	ProfilePartial  = "partial"
	ProfileSecure   = "secure"
)

// Profiles lists the profile names from weakest to strongest.
var Profiles = []string{ProfileInsecure, ProfilePartial, ProfileSecure}

// HeaderField is one response header line. Fields are added in order, so a
// name may repeat.
type HeaderField struct {
	Name  string
	Value string
}

// PageProfile is how a page responds under one header profile.
type PageProfile struct {
	Status      int
	ContentType string
	Headers     []HeaderField
	// RawCookies are sent verbatim as Set-Cookie values.
	RawCookies []string
	// ReflectOrigin echoes the request Origin in Access-Control-Allow-Origin.
	ReflectOrigin bool
	Body          string
}

// PageDefinition holds every profile of a single page.
type PageDefinition struct {
	Path        string
	Description string
	Profiles    map[string]PageProfile
}

const navHTML = `<nav>
  <a href="/">Home</a> |
  <a href="/login">Login</a> |
  <a href="/account">Account</a> |
  <a href="/api/data">API</a> |
  <a href="/legacy">Legacy</a>
</nav>`

func htmlPage(title, body string) string {
	return `<!DOCTYPE html>
<html>
<head>
  <title>` + title + `</title>
  <script src="/static/app.js"></script>
</head>
<body>
` + navHTML + `
<h1>` + title + `</h1>
` + body + `
</body>
</html>`
}

var secureBaseline = []HeaderField{
	{"Content-Security-Policy", "default-src 'self'; script-src 'self'; object-src 'none'; frame-ancestors 'none'; base-uri 'self'"},
	{"Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Cache-Control", "no-store, private"},
	{"Referrer-Policy", "no-referrer"},
}

// GetAllPages returns all demo page definitions.
func GetAllPages() []PageDefinition {
	return []PageDefinition{
		homePage(),
		loginPage(),
		accountPage(),
		apiPage(),
		legacyPage(),
	}
}

func homePage() PageDefinition {
	body := htmlPage("Demo Shop", `<p>Browse the catalogue or sign in.</p>`)
	return PageDefinition{
		Path:        "/",
		Description: "Landing page; public content only",
		Profiles: map[string]PageProfile{
			ProfileInsecure: {
				ContentType: "text/html",
				Headers:     []HeaderField{{"Server", "demo/0.1"}},
				Body:        body,
			},
			ProfilePartial: {
				ContentType: "text/html; charset=utf-8",
				Headers: []HeaderField{
					{"Content-Security-Policy", "default-src 'self' 'unsafe-inline'"},
					{"X-Content-Type-Options", "nosniff"},
				},
				Body: body,
			},
			ProfileSecure: {
				ContentType: "text/html; charset=utf-8",
				Headers:     secureBaseline,
				Body:        body,
			},
		},
	}
}

func loginPage() PageDefinition {
	body := htmlPage("Sign in", `<form method="post" action="/login">
  <input name="user"> <input name="password" type="password">
  <button>Sign in</button>
</form>`)
	return PageDefinition{
		Path:        "/login",
		Description: "Login form issuing a session cookie",
		Profiles: map[string]PageProfile{
			ProfileInsecure: {
				ContentType: "text/html",
				RawCookies:  []string{"session=abc123; Path=/"},
				Body:        body,
			},
			ProfilePartial: {
				ContentType: "text/html; charset=utf-8",
				Headers: []HeaderField{
					{"Strict-Transport-Security", "max-age=300"},
					{"X-Frame-Options", "SAMEORIGIN"},
				},
				RawCookies: []string{"session=abc123; Path=/; HttpOnly", "theme=dark; Path=/"},
				Body:       body,
			},
			ProfileSecure: {
				ContentType: "text/html; charset=utf-8",
				Headers:     secureBaseline,
				RawCookies:  []string{"__Host-session=abc123; Path=/; Secure; HttpOnly; SameSite=Strict"},
				Body:        body,
			},
		},
	}
}

func accountPage() PageDefinition {
	body := htmlPage("Your account", `<p>Order history and saved cards.</p>`)
	return PageDefinition{
		Path:        "/account",
		Description: "Personal data that must not be cached",
		Profiles: map[string]PageProfile{
			ProfileInsecure: {
				ContentType: "text/html",
				Headers: []HeaderField{
					{"Cache-Control", "public, max-age=3600"},
					{"X-XSS-Protection", "1; mode=block"},
				},
				Body: body,
			},
			ProfilePartial: {
				ContentType: "text/html; charset=utf-8",
				Headers: []HeaderField{
					{"Cache-Control", "private"},
					{"Content-Security-Policy", "default-src 'self'; frame-ancestors 'self'"},
				},
				Body: body,
			},
			ProfileSecure: {
				ContentType: "text/html; charset=utf-8",
				Headers:     secureBaseline,
				Body:        body,
			},
		},
	}
}

func apiPage() PageDefinition {
	body := `{"items":[{"id":1,"name":"teapot"}]}`
	return PageDefinition{
		Path:        "/api/data",
		Description: "JSON endpoint with cross-origin access",
		Profiles: map[string]PageProfile{
			ProfileInsecure: {
				ContentType: "application/json",
				Headers:     []HeaderField{{"Access-Control-Allow-Origin", "*"}},
				Body:        body,
			},
			ProfilePartial: {
				ContentType:   "application/json",
				ReflectOrigin: true,
				Headers:       []HeaderField{{"Access-Control-Allow-Credentials", "true"}},
				Body:          body,
			},
			ProfileSecure: {
				ContentType: "application/json; charset=utf-8",
				Headers: append([]HeaderField{
					{"Access-Control-Allow-Origin", "https://shop.example"},
					{"Vary", "Origin"},
				}, secureBaseline...),
				Body: body,
			},
		},
	}
}

func legacyPage() PageDefinition {
	return PageDefinition{
		Path:        "/legacy",
		Description: "Moved page that redirects to the landing page",
		Profiles: map[string]PageProfile{
			ProfileInsecure: {
				Status:  302,
				Headers: []HeaderField{{"Location", "/"}},
			},
			ProfilePartial: {
				Status:  301,
				Headers: []HeaderField{{"Location", "/"}, {"Strict-Transport-Security", "max-age=86400"}},
			},
			ProfileSecure: {
				Status:  308,
				Headers: append([]HeaderField{{"Location", "/"}}, secureBaseline...),
			},
		},
	}
}
