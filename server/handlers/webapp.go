package handlers

import (
	"context"
	"flag"
	"io/fs"
	"net/http"
	"os"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

var webBuild = flag.String("web_build", "", "`build` folder for the map dashboard")

func createWebApp(ctx context.Context, r Router) {
	if *webBuild == "" {
		return
	}
	var files int
	err := fs.WalkDir(os.DirFS(*webBuild), ".",
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			urlPath := "/" + path
			filePath := *webBuild + "/" + path

			if urlPath == "/index.html" {
				return nil
			}
			r.GET(urlPath, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				http.ServeFile(w, r, filePath)
			})
			files++
			return nil
		},
	)
	r.GET("/", serveIndex)
	if err != nil {
		panic(err)
	}
	log.Info(ctx, "serving web build", j.MKV{"path": *webBuild, "files": files})
}

// serveIndex serves the dashboard for any page path so client side routes
// survive a reload.
func serveIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if *webBuild == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, *webBuild+"/index.html")
}
