package api

import "github.com/starford/noteweave/internal/link"

func linkTo(fname, vault string) link.Location {
	return link.Location{Fname: fname, Vault: vault}
}
