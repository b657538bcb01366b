// Command rejigd serves transformations over HTTP and WebSockets.
//
// Clients POST request frames to /api or stream them over /ws/api.
// A frame names a stored spec or carries one inline, plus the source
// document; the reply carries the transformed destination.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/rejig/rejig"
	"github.com/rejig/rejig/library"
)

func main() {

	var (
		listen      = flag.String("l", ":8080", "listen address")
		dbFilename  = flag.String("db", "", "spec library filename")
		libFilename = flag.String("lib", "", "ECMAScript library for query expressions")
		timeout     = flag.Duration("timeout", 10*time.Second, "per-request deadline")
	)

	flag.BoolVar(&Verbose, "v", false, "log requests and replies")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := &rejig.Options{}
	if *libFilename != "" {
		lib, err := ioutil.ReadFile(*libFilename)
		if err != nil {
			panic(err)
		}
		opts.Library = string(lib)
	}

	s := &Service{
		engine:  rejig.New(opts),
		timeout: *timeout,
	}

	if *dbFilename != "" {
		s.store = library.NewStore(*dbFilename)
		if err := s.store.Open(ctx); err != nil {
			panic(err)
		}
		defer s.store.Close(ctx)
	}

	http.HandleFunc("/api", s.HTTPHandler(ctx))
	if err := s.WebSocketService(ctx); err != nil {
		panic(err)
	}

	log.Printf("rejigd listening on %s", *listen)
	if err := http.ListenAndServe(*listen, nil); err != nil {
		panic(err)
	}
}

// HTTPHandler answers one request frame per POST body.
func (s *Service) HTTPHandler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		js, err := ioutil.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := r.Body.Close(); err != nil {
			log.Printf("Service.HTTPHandler warning on Body.Close(): %v", err)
		}

		var req Request
		if err := json.Unmarshal(js, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := s.Do(ctx, &req)
		if resp.Error != "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		js, err = json.Marshal(resp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err = w.Write(js); err != nil {
			log.Printf("Service.HTTPHandler warning on Write(): %v", err)
		}
	}
}

var Verbose bool

func Logf(format string, args ...interface{}) {
	if Verbose {
		log.Printf(format, args...)
	}
}

func JS(x interface{}) string {
	js, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}
