// Package server is the connection front end: the listening socket,
// per-connection buffering, inline-command tokenizer, and reply writer
// that sits in front of the storage engine. It is logged, configured,
// and rate-limited the way a long-lived network service should be.
package server

import (
	"bufio"
	"bytes"
	"context"
	"net"

	"golang.org/x/time/rate"

	"blinkdb/internal/config"
	"blinkdb/internal/dispatch"
	"blinkdb/internal/keyspace"
	"blinkdb/internal/log"
	"blinkdb/internal/reply"
)

// Server owns the listening socket and the shared Keyspace every
// connection's goroutine dispatches against.
type Server struct {
	cfg      *config.Config
	keyspace *keyspace.Keyspace
	listener net.Listener
}

// New creates a Server bound to cfg's address, backed by ks.
func New(cfg *config.Config, ks *keyspace.Keyspace) *Server {
	return &Server{cfg: cfg, keyspace: ks}
}

// Run binds the listening socket and accepts connections until ctx is
// canceled, spawning one goroutine per connection. Returns only when the
// listen call fails or ctx is canceled; other Accept errors are logged and
// accepting continues.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	log.Infof("server: listening on %s", s.cfg.Addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Errorf("server: accept: %v", err)
				continue
			}
		}
		go s.handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// handle services one connection until it disconnects or a read, write,
// or rate-limiter error occurs. A malformed request (unknown command,
// wrong arity, bad number) gets an error reply and the connection stays
// open for the next request.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimitRPS), s.cfg.RateBurst)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		tokens := tokenize(line)
		if len(tokens) == 0 {
			continue
		}

		if err := limiter.Wait(context.Background()); err != nil {
			log.Warnf("server: rate limiter error: %v", err)
			return
		}

		r := dispatch.Dispatch(s.keyspace, tokens)
		if _, err := writer.Write(reply.Encode(r)); err != nil {
			log.Warnf("server: write reply: %v", err)
			return
		}
		if err := writer.Flush(); err != nil {
			log.Warnf("server: flush: %v", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Debugf("server: connection read error: %v", err)
	}
}

// tokenize splits a request line on runs of whitespace. A trailing '\r'
// left by CRLF termination is trimmed defensively in case the front
// end's line splitter didn't already strip it.
func tokenize(line []byte) [][]byte {
	line = bytes.TrimRight(line, "\r")
	return bytes.Fields(line)
}
