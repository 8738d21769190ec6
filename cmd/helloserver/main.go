// helloserver is a minimal example of wiring a handler onto httpcore.

package main

import (
	"log"

	"github.com/hexserve/httpcore"
)

func main() {
	config := httpcore.DefaultConfig()
	server := httpcore.NewServer(config, nil, nil, nil)

	route, err := httpcore.ParseRoute("/hello")
	if err != nil {
		log.Fatal(err)
	}
	if err := route.AddHandler(&httpcore.Handler{
		Method:   "GET",
		Produces: []string{"text/plain"},
		Func:     handleHello,
	}); err != nil {
		log.Fatal(err)
	}
	if err := server.Registry().Insert(route); err != nil {
		log.Fatal(err)
	}

	greetRoute, err := httpcore.ParseRoute("/greet/:name")
	if err != nil {
		log.Fatal(err)
	}
	if err := greetRoute.AddHandler(&httpcore.Handler{
		Method:   "GET",
		Produces: []string{"text/plain"},
		Func:     handleGreet,
	}); err != nil {
		log.Fatal(err)
	}
	if err := server.Registry().Insert(greetRoute); err != nil {
		log.Fatal(err)
	}

	gate, err := server.Start("127.0.0.1:8080")
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("listening on %s", gate.Addr())
	select {}
}

func handleHello(req *httpcore.Request, rw httpcore.ResponseWriter) error {
	body := []byte("Hello World!")
	resp, err := httpcore.NewResponse(200).
		WithHeader("Content-Type", "text/plain; charset=utf-8").
		WithBodyBytes(body).
		Build()
	if err != nil {
		return err
	}
	return rw.Write(resp)
}

func handleGreet(req *httpcore.Request, rw httpcore.ResponseWriter) error {
	name, _ := req.PathParam("name")
	body := []byte("Hello, " + name + "!")
	resp, err := httpcore.NewResponse(200).
		WithHeader("Content-Type", "text/plain; charset=utf-8").
		WithBodyBytes(body).
		Build()
	if err != nil {
		return err
	}
	return rw.Write(resp)
}
