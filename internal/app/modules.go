package app

import (
	"github.com/vk/gridbind/internal/handlers"
	"github.com/vk/gridbind/modules/envcheck"
	"github.com/vk/gridbind/modules/httpping"
	"github.com/vk/gridbind/modules/print"
)

// coreModules is the default set of built-in modules registered when the
// caller supplies none.
var coreModules = []handlers.Module{
	&print.Module{},
	&envcheck.Module{},
	&httpping.Module{},
}
