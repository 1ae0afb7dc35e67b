// Package appfs embeds the SQL migrations and email templates into the binaries.
package appfs

import "embed"

//go:embed migrations/*.sql assets/templates/email/* assets/common-passwords.txt
var FS embed.FS
