// Package pathsub substitutes $FLAG tokens in file-path templates.
package pathsub

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Resolve replaces every occurrence of the token $FLAG in template with
// value, where FLAG is the upper-cased flag name. Templates are expected to
// use only a subset of the available flags, so an absent token is not an
// error: the template is returned unchanged.
func Resolve(template, flag, value string) string {
	token := "$" + strings.ToUpper(flag)
	if !strings.Contains(template, token) {
		log.Debug().Str("token", token).Str("template", template).Msg("Flag not present in template")
		return template
	}
	log.Debug().Str("token", token).Str("value", value).Str("template", template).Msg("Substituting flag in template")
	return strings.ReplaceAll(template, token, value)
}
