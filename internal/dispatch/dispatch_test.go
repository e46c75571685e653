package dispatch

import (
	"testing"

	"blinkdb/internal/config"
	"blinkdb/internal/keyspace"
	"blinkdb/internal/reply"
)

func newTestKeyspace(capacity int) *keyspace.Keyspace {
	cfg := config.New("", "", capacity, 4096, 0, 0)
	return keyspace.New(cfg)
}

func tok(args ...string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

func wire(r reply.Reply) string { return string(reply.Encode(r)) }

func TestStringBasicsScenario(t *testing.T) {
	ks := newTestKeyspace(1000)

	if got, want := wire(Dispatch(ks, tok("SET", "greet", "hello"))), "+OK\r\n"; got != want {
		t.Fatalf("SET reply = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("GET", "greet"))), "$5\r\nhello\r\n"; got != want {
		t.Fatalf("GET reply = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("DEL", "greet"))), ":1\r\n"; got != want {
		t.Fatalf("DEL reply = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("GET", "greet"))), "$-1\r\n"; got != want {
		t.Fatalf("GET after DEL reply = %q, want %q", got, want)
	}
}

func TestTypeMismatchScenario(t *testing.T) {
	ks := newTestKeyspace(1000)
	Dispatch(ks, tok("SET", "a", "1"))

	got := wire(Dispatch(ks, tok("LPUSH", "a", "2")))
	want := "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n"
	if got != want {
		t.Fatalf("LPUSH against string key reply = %q, want %q", got, want)
	}
}

func TestListRangeScenario(t *testing.T) {
	ks := newTestKeyspace(1000)
	Dispatch(ks, tok("RPUSH", "l", "x"))
	Dispatch(ks, tok("RPUSH", "l", "y"))
	Dispatch(ks, tok("RPUSH", "l", "z"))

	got := wire(Dispatch(ks, tok("LRANGE", "l", "0", "-1")))
	want := "*3\r\n$1\r\nx\r\n$1\r\ny\r\n$1\r\nz\r\n"
	if got != want {
		t.Fatalf("LRANGE reply = %q, want %q", got, want)
	}

	got = wire(Dispatch(ks, tok("LINDEX", "l", "-1")))
	want = "$1\r\nz\r\n"
	if got != want {
		t.Fatalf("LINDEX -1 reply = %q, want %q", got, want)
	}
}

func TestSetDedupAndEmptyRemovalScenario(t *testing.T) {
	ks := newTestKeyspace(1000)

	if got, want := wire(Dispatch(ks, tok("SADD", "s", "a"))), ":1\r\n"; got != want {
		t.Fatalf("first SADD = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("SADD", "s", "a"))), ":0\r\n"; got != want {
		t.Fatalf("second SADD = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("SREM", "s", "a"))), ":1\r\n"; got != want {
		t.Fatalf("SREM = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("TYPE", "s"))), "+none\r\n"; got != want {
		t.Fatalf("TYPE after empty removal = %q, want %q", got, want)
	}
}

func TestHashRoundTripScenario(t *testing.T) {
	ks := newTestKeyspace(1000)

	if got, want := wire(Dispatch(ks, tok("HSET", "u", "name", "alice"))), ":1\r\n"; got != want {
		t.Fatalf("first HSET = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("HSET", "u", "name", "alice"))), ":0\r\n"; got != want {
		t.Fatalf("second HSET = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("HGET", "u", "name"))), "$5\r\nalice\r\n"; got != want {
		t.Fatalf("HGET = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("HLEN", "u"))), ":1\r\n"; got != want {
		t.Fatalf("HLEN = %q, want %q", got, want)
	}
}

func TestEvictionScenario(t *testing.T) {
	ks := newTestKeyspace(2)

	Dispatch(ks, tok("SET", "k1", "v1"))
	Dispatch(ks, tok("SET", "k2", "v2"))
	Dispatch(ks, tok("SET", "k3", "v3"))

	if got, want := wire(Dispatch(ks, tok("GET", "k1"))), "$-1\r\n"; got != want {
		t.Fatalf("GET k1 after eviction = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("GET", "k2"))), "$2\r\nv2\r\n"; got != want {
		t.Fatalf("GET k2 = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("GET", "k3"))), "$2\r\nv3\r\n"; got != want {
		t.Fatalf("GET k3 = %q, want %q", got, want)
	}
}

func TestUnknownCommand(t *testing.T) {
	ks := newTestKeyspace(1000)
	got := wire(Dispatch(ks, tok("FROBNICATE", "x")))
	want := "-ERR unknown command 'FROBNICATE'\r\n"
	if got != want {
		t.Fatalf("unknown command reply = %q, want %q", got, want)
	}
}

func TestArityViolation(t *testing.T) {
	ks := newTestKeyspace(1000)
	r := Dispatch(ks, tok("SET", "onlykey"))
	if r.Kind != reply.KindError {
		t.Fatalf("arity violation should be an error reply, got %+v", r)
	}
}

func TestPingIgnoresExtraArguments(t *testing.T) {
	ks := newTestKeyspace(1000)
	if got, want := wire(Dispatch(ks, tok("PING"))), "+PONG\r\n"; got != want {
		t.Fatalf("PING = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("PING", "hi"))), "+PONG\r\n"; got != want {
		t.Fatalf("PING hi = %q, want %q", got, want)
	}
}

func TestMissingKeyDefaults(t *testing.T) {
	ks := newTestKeyspace(1000)

	if got, want := wire(Dispatch(ks, tok("DEL", "nope"))), ":1\r\n"; got != want {
		t.Fatalf("DEL on missing key = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("LLEN", "nope"))), ":0\r\n"; got != want {
		t.Fatalf("LLEN on missing key = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("LRANGE", "nope", "0", "-1"))), "*0\r\n"; got != want {
		t.Fatalf("LRANGE on missing key = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("SMEMBERS", "nope"))), "*0\r\n"; got != want {
		t.Fatalf("SMEMBERS on missing key = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("SISMEMBER", "nope", "x"))), ":0\r\n"; got != want {
		t.Fatalf("SISMEMBER on missing key = %q, want %q", got, want)
	}
}

func TestBadArgumentNumericParse(t *testing.T) {
	ks := newTestKeyspace(1000)
	Dispatch(ks, tok("RPUSH", "l", "x"))
	r := Dispatch(ks, tok("LINDEX", "l", "not-a-number"))
	if r.Kind != reply.KindError {
		t.Fatalf("non-numeric index should be an error reply, got %+v", r)
	}
}

func TestCaseInsensitiveCommand(t *testing.T) {
	ks := newTestKeyspace(1000)
	if got, want := wire(Dispatch(ks, tok("set", "k", "v"))), "+OK\r\n"; got != want {
		t.Fatalf("lowercase set = %q, want %q", got, want)
	}
	if got, want := wire(Dispatch(ks, tok("GeT", "k"))), "$1\r\nv\r\n"; got != want {
		t.Fatalf("mixed-case get = %q, want %q", got, want)
	}
}
