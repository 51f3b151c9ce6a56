// Package migrations embute os arquivos SQL para que os binários não dependam do diretório atual.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
