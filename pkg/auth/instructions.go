package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide writes instructions for obtaining an X API access token
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "X API ACCESS TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "threadscraper reads posts through the X API v2 and needs a bearer token")
	fmt.Fprintln(w, "with access to tweet lookup and recent search.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Sign in at https://developer.x.com and open the developer portal")
	fmt.Fprintln(w, "  2. Create a project and an app inside it")
	fmt.Fprintln(w, "  3. Under 'Keys and tokens', generate a Bearer Token")
	fmt.Fprintln(w, "  4. Paste it when prompted, or export "+EnvAccessToken)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tokens are stored in the system keyring when one is available, and in an")
	fmt.Fprintln(w, "encrypted file otherwise. Set "+PassphraseEnv+" to choose the")
	fmt.Fprintln(w, "passphrase used for that file.")
	fmt.Fprintln(w, rule)
}

// ShowQuickTokenGuide writes a one-line reminder
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "Need a token? developer.x.com → your app → Keys and tokens → Bearer Token ('help' for more)")
}
