// Package dispatch turns a parsed token list into an engine operation and
// a shaped reply. It is intentionally the only package that knows about
// wire-level command names — the keyspace package below it never sees a
// command string.
package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"blinkdb/internal/keyspace"
	"blinkdb/internal/reply"
)

const wrongTypeMsg = "WRONGTYPE Operation against a key holding the wrong kind of value"

// commandFunc executes one command's engine call and shapes its reply.
// args excludes the command name itself.
type commandFunc func(ks *keyspace.Keyspace, args [][]byte) reply.Reply

type commandSpec struct {
	minArity int // total token count, including the command name
	fn       commandFunc
}

var table map[string]commandSpec

func init() {
	table = map[string]commandSpec{
		"PING":       {1, cmdPing},
		"SET":        {3, cmdSet},
		"GET":        {2, cmdGet},
		"DEL":        {2, cmdDel},
		"TYPE":       {2, cmdType},
		"LPUSH":      {3, cmdLPush},
		"RPUSH":      {3, cmdRPush},
		"LPOP":       {2, cmdLPop},
		"RPOP":       {2, cmdRPop},
		"LINDEX":     {3, cmdLIndex},
		"LLEN":       {2, cmdLLen},
		"LRANGE":     {4, cmdLRange},
		"SADD":       {3, cmdSAdd},
		"SISMEMBER":  {3, cmdSIsMember},
		"SREM":       {3, cmdSRem},
		"SCARD":      {2, cmdSCard},
		"SMEMBERS":   {2, cmdSMembers},
		"HSET":       {4, cmdHSet},
		"HGET":       {3, cmdHGet},
		"HEXISTS":    {3, cmdHExists},
		"HDEL":       {3, cmdHDel},
		"HLEN":       {2, cmdHLen},
		"HKEYS":      {2, cmdHKeys},
		"HVALS":      {2, cmdHVals},
		"HGETALL":    {2, cmdHGetAll},
	}
}

// Dispatch executes tokens (a non-empty command line) against ks and
// returns the reply to write back. An empty tokens slice is the front
// end's responsibility to have already filtered out.
func Dispatch(ks *keyspace.Keyspace, tokens [][]byte) reply.Reply {
	if len(tokens) == 0 {
		return reply.Err("ERR empty command")
	}
	name := strings.ToUpper(string(tokens[0]))
	spec, ok := table[name]
	if !ok {
		return reply.Err(fmt.Sprintf("ERR unknown command '%s'", tokens[0]))
	}
	if len(tokens) < spec.minArity {
		return reply.Err(fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name)))
	}
	return spec.fn(ks, tokens[1:])
}

func mapErr(err error) reply.Reply {
	if errors.Is(err, keyspace.ErrWrongType) {
		return reply.Err(wrongTypeMsg)
	}
	return reply.Err("ERR " + err.Error())
}

func parseInt(tok []byte) (int, error) {
	n, err := strconv.Atoi(string(tok))
	if err != nil {
		return 0, fmt.Errorf("value is not an integer or out of range")
	}
	return n, nil
}

// --- connection / introspection ---

func cmdPing(_ *keyspace.Keyspace, _ [][]byte) reply.Reply {
	return reply.Simple("PONG")
}

func cmdType(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	kind := ks.Type(args[0])
	if kind == 0 {
		return reply.Simple("none")
	}
	return reply.Simple(kind.String())
}

func cmdDel(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	ks.Del(args[0])
	return reply.Int(1)
}

// --- string ---

func cmdSet(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	ks.Set(args[0], args[1])
	return reply.Simple("OK")
}

func cmdGet(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	val, ok, err := ks.Get(args[0])
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return reply.NilBulk()
	}
	return reply.Bulk(val)
}

// --- list ---

func cmdLPush(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	n, err := ks.LPush(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Int(int64(n))
}

func cmdRPush(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	n, err := ks.RPush(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Int(int64(n))
}

func cmdLPop(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	elem, ok, err := ks.LPop(args[0])
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return reply.NilBulk()
	}
	return reply.Bulk(elem)
}

func cmdRPop(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	elem, ok, err := ks.RPop(args[0])
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return reply.NilBulk()
	}
	return reply.Bulk(elem)
}

func cmdLIndex(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	i, err := parseInt(args[1])
	if err != nil {
		return reply.Err("ERR " + err.Error())
	}
	elem, ok, err := ks.LIndex(args[0], i)
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return reply.NilBulk()
	}
	return reply.Bulk(elem)
}

func cmdLLen(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	n, err := ks.LLen(args[0])
	if err != nil {
		return mapErr(err)
	}
	return reply.Int(int64(n))
}

func cmdLRange(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	start, err := parseInt(args[1])
	if err != nil {
		return reply.Err("ERR " + err.Error())
	}
	end, err := parseInt(args[2])
	if err != nil {
		return reply.Err("ERR " + err.Error())
	}
	elems, err := ks.LRange(args[0], start, end)
	if err != nil {
		return mapErr(err)
	}
	return reply.BulkArray(elems)
}

// --- set ---

func cmdSAdd(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	added, err := ks.SAdd(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Bool(added)
}

func cmdSIsMember(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	ok, err := ks.SIsMember(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Bool(ok)
}

func cmdSRem(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	removed, err := ks.SRem(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Bool(removed)
}

func cmdSCard(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	n, err := ks.SCard(args[0])
	if err != nil {
		return mapErr(err)
	}
	return reply.Int(int64(n))
}

func cmdSMembers(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	members, err := ks.SMembers(args[0])
	if err != nil {
		return mapErr(err)
	}
	return reply.BulkArray(members)
}

// --- hash ---

func cmdHSet(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	added, err := ks.HSet(args[0], args[1], args[2])
	if err != nil {
		return mapErr(err)
	}
	return reply.Bool(added)
}

func cmdHGet(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	val, ok, err := ks.HGet(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	if !ok {
		return reply.NilBulk()
	}
	return reply.Bulk(val)
}

func cmdHExists(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	ok, err := ks.HExists(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Bool(ok)
}

func cmdHDel(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	removed, err := ks.HDel(args[0], args[1])
	if err != nil {
		return mapErr(err)
	}
	return reply.Bool(removed)
}

func cmdHLen(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	n, err := ks.HLen(args[0])
	if err != nil {
		return mapErr(err)
	}
	return reply.Int(int64(n))
}

func cmdHKeys(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	keys, err := ks.HKeys(args[0])
	if err != nil {
		return mapErr(err)
	}
	return reply.BulkArray(keys)
}

func cmdHVals(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	vals, err := ks.HVals(args[0])
	if err != nil {
		return mapErr(err)
	}
	return reply.BulkArray(vals)
}

func cmdHGetAll(ks *keyspace.Keyspace, args [][]byte) reply.Reply {
	entries, err := ks.HGetAll(args[0])
	if err != nil {
		return mapErr(err)
	}
	flat := make([][]byte, 0, len(entries)*2)
	for _, e := range entries {
		flat = append(flat, e.Field, e.Value)
	}
	return reply.BulkArray(flat)
}
