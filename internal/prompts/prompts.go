package prompts

import (
	"fmt"
	"strings"
)

// BlockerPhrases are the markers the agent is told to use when it cannot log in.
// A response containing one of them is reported to the caller verbatim.
var BlockerPhrases = []string{
	"login failed",
	"captcha",
	"cloudflare",
	"2fa",
}

// LoginScraperSystemPrompt defines the role and output contract of the computer-use agent.
const LoginScraperSystemPrompt = `You are an advanced AI assistant specialized in web scraping and browser automation.
Your task is to log into a website using provided credentials and extract the HTML content after successful login.

Instructions:
1. Navigate to the provided URL.
2. Locate the login form (it might require navigating or handling redirects).
3. Enter the username and password into the appropriate fields.
4. Submit the login form.
5. Wait for the page to load after login. Verify login success if possible (e.g., look for welcome message, account section).
6. Once logged in and the target page is loaded, extract the *complete* HTML source code using ` + "`document.documentElement.outerHTML`" + `.
7. Return *only* the extracted HTML content within a single ` + "```html" + ` code block. Do not include any other text outside the code block.

Error Handling:
- If you encounter CAPTCHA, Cloudflare, 2FA, or any other blocker preventing login, clearly state the specific reason in your response (e.g., "Login failed: CAPTCHA detected."). Do *not* return HTML in this case.
- If login fails due to incorrect credentials, state "Login failed: Incorrect username or password."
- If you cannot find the login form or the target page after login, state the issue clearly.

Example successful output format:
` + "```html" + `
<!DOCTYPE html>
<html>
<head>...</head>
<body>...</body>
</html>
` + "```" + `

Example error output format:
Login failed: CAPTCHA detected.`

// LoginScraperUserPrompt builds the task message. The password is never written
// into the prompt; it travels as structured credentials alongside it.
// Parameters:
//   - url: page to log into.
//   - username: account name to use.
// Returns:
//   - string: user message for the agent.
func LoginScraperUserPrompt(url, username string) string {
	return fmt.Sprintf(`Please log into the website at the following URL:
%s

Use these credentials:
Username: %s
Password: [REDACTED]

After successful login, extract the complete HTML of the resulting page using `+"`document.documentElement.outerHTML`"+` and return it in a `+"```html"+` code block.`, url, username)
}

// MentionsBlocker reports whether an agent response names a known login blocker.
func MentionsBlocker(response string) bool {
	lower := strings.ToLower(response)
	for _, phrase := range BlockerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
