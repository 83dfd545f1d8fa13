package main

import (
	"github.com/ryanhamamura/mvi"
	"github.com/ryanhamamura/mvi/page"
)

func main() {
	app := mvi.New()
	app.Config(mvi.Options{
		DevMode:       true,
		DocumentTitle: "Counter",
		LogLevel:      mvi.LogLevelDebug,
	})

	app.Page("/", page.Home)
	app.Page("/page1", page.Counter, page.Props{Title: "Page 1"})
	app.Page("/page2", page.Counter, page.Props{Title: "Page 2"})

	app.Start()
}
