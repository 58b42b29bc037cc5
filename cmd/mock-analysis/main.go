package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/skypro1111/interview-service/internal/analysis"
)

func main() {
	addr := flag.String("addr", ":9000", "Listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.Handle("/", loggingHandler(analysis.MockHandler()))

	log.Printf("🚀 Mock analysis server starting on %s", *addr)
	log.Printf("📡 Endpoint: http://localhost%s/v1beta/models/{model}:generateContent", *addr)
	log.Println("💡 Set analysis.endpoint to http://localhost:9000/v1beta")

	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}

func loggingHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("🧠 ANALYSIS REQUEST: %s %s (%d bytes)", r.Method, r.URL.Path, r.ContentLength)
		next.ServeHTTP(w, r)
	})
}
