package client

import (
	"bytes"
	"encoding/base64"

	pool "github.com/libp2p/go-buffer-pool"

	"github.com/zunkfs/zunkdb/chunk"
)

// Wire protocol: ASCII lines terminated by CRLF, one verb per line. The
// first space-delimited token selects the verb, case-sensitively. Anything
// unrecognized or malformed is dropped on the floor; parsing never kills a
// connection.
const (
	verbFindChunk   = "find_chunk"
	verbStoreChunk  = "store_chunk"
	verbRequestDone = "request_done"
	verbStoreNode   = "store_node"
)

var crlf = []byte("\r\n")

// maxLineSize bounds a single inbound line. The longest legitimate line is a
// store_chunk carrying a base64 chunk payload.
const maxLineSize = len(verbStoreChunk) + 1 + (chunk.Size/3+1)*4 + len("\r\n")

// Message is an inbound wire message. The concrete types are StoreChunk,
// RequestDone and StoreNode.
type Message interface {
	wireMessage()
}

// StoreChunk delivers a chunk payload.
type StoreChunk struct {
	Data []byte
}

// RequestDone signals that the sending peer considers the exchange for the
// given digest complete.
type RequestDone struct {
	Digest string
}

// StoreNode volunteers another peer's address.
type StoreNode struct {
	Addr PeerAddress
}

func (StoreChunk) wireMessage()  {}
func (RequestDone) wireMessage() {}
func (StoreNode) wireMessage()   {}

// parseMessage parses one inbound line (without its CRLF terminator) into a
// Message, or nil if the line should be ignored.
func parseMessage(line []byte) Message {
	verb, rest := splitVerb(line)

	switch verb {
	case verbStoreChunk:
		data := make([]byte, base64.StdEncoding.DecodedLen(len(rest)))
		n, err := base64.StdEncoding.Decode(data, rest)
		if err != nil || n != chunk.Size {
			return nil
		}
		return StoreChunk{Data: data[:n]}

	case verbRequestDone:
		if len(rest) == 0 {
			return nil
		}
		return RequestDone{Digest: string(rest)}

	case verbStoreNode:
		addr, err := ParsePeerAddress(string(rest))
		if err != nil {
			return nil
		}
		return StoreNode{Addr: addr}
	}

	return nil
}

func splitVerb(line []byte) (verb string, rest []byte) {
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		return string(line[:i]), line[i+1:]
	}
	return string(line), nil
}

// encodeFindChunk serializes the outbound message of a read request.
func encodeFindChunk(digest chunk.Digest) []byte {
	s := digest.String()
	msg := pool.Get(len(verbFindChunk) + 1 + len(s) + len(crlf))
	n := copy(msg, verbFindChunk)
	msg[n] = ' '
	n++
	n += copy(msg[n:], s)
	copy(msg[n:], crlf)
	return msg
}

// encodeStoreChunk serializes the outbound message of a write request, with
// the full chunk payload encoded as base64 inline.
func encodeStoreChunk(data []byte) []byte {
	encLen := base64.StdEncoding.EncodedLen(len(data))
	msg := pool.Get(len(verbStoreChunk) + 1 + encLen + len(crlf))
	n := copy(msg, verbStoreChunk)
	msg[n] = ' '
	n++
	base64.StdEncoding.Encode(msg[n:], data)
	n += encLen
	copy(msg[n:], crlf)
	return msg
}

// putMessageBuf returns an outbound message buffer to the shared pool once
// the request that owned it has been torn down.
func putMessageBuf(msg []byte) {
	pool.Put(msg)
}

// scanLines is a bufio.SplitFunc producing CRLF-terminated lines without the
// terminator. A trailing partial line at EOF is dropped, matching the rule
// that only complete lines are ever processed.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, crlf); i >= 0 {
		return i + len(crlf), data[:i], nil
	}
	return 0, nil, nil
}
