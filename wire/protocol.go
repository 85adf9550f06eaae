package wire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xytuang/pollchain/chain"
)

// Verbs exchanged between peers and between peer and directory, per
// spec.md §4.6.
const (
	VerbJoin     = "JOIN"
	VerbID       = "ID"
	VerbList     = "LIST"
	VerbGetPeer  = "GET-PEER"
	VerbLeave    = "LEAVE"
	VerbPeers    = "PEERS"
	VerbPeerPort = "PEER-PORT"

	VerbBlock    = "BLOCK"
	VerbGetChain = "GET-CHAIN"
)

// BlockTag labels why a BLOCK message was sent, carried as the second
// header argument of a BLOCK frame.
type BlockTag string

const (
	TagBroadcast BlockTag = "broadcast"
	TagSync      BlockTag = "sync"
)

// SendJoin writes "JOIN\n<port>\n" to the directory connection.
func SendJoin(f *FramedConn, listeningPort int) error {
	return f.WriteString(fmt.Sprintf("%s\n%d\n", VerbJoin, listeningPort))
}

// SendID writes "ID <len>\n<pub_key_bytes>" — no trailing newline after
// the raw key bytes, matching original_source/tracker.py's framing.
func SendID(f *FramedConn, peerID string) error {
	if err := f.WriteString(fmt.Sprintf("%s %d\n", VerbID, len(peerID))); err != nil {
		return err
	}
	return f.WriteString(peerID)
}

// SendList writes "LIST <len>\n<pub_id>".
func SendList(f *FramedConn, peerID string) error {
	if err := f.WriteString(fmt.Sprintf("%s %d\n", VerbList, len(peerID))); err != nil {
		return err
	}
	return f.WriteString(peerID)
}

// SendGetPeer writes "GET-PEER <len>\n<pub_id>".
func SendGetPeer(f *FramedConn, peerID string) error {
	if err := f.WriteString(fmt.Sprintf("%s %d\n", VerbGetPeer, len(peerID))); err != nil {
		return err
	}
	return f.WriteString(peerID)
}

// SendLeave writes "LEAVE\n".
func SendLeave(f *FramedConn) error {
	return f.WriteString(VerbLeave + "\n")
}

// PeerAddr is one entry of a serialized PEERS list: an IP address and the
// listening port the peer registered with.
type PeerAddr struct {
	IP   string
	Port int
}

// SerializePeers renders a PEERS body: space-separated "ip,port" pairs.
func SerializePeers(peers []PeerAddr) string {
	parts := make([]string, len(peers))
	for i, p := range peers {
		parts[i] = fmt.Sprintf("%s,%d", p.IP, p.Port)
	}
	return strings.Join(parts, " ")
}

// ParsePeers is the inverse of SerializePeers; an empty body yields an
// empty (non-nil) slice.
func ParsePeers(body string) ([]PeerAddr, error) {
	if body == "" {
		return []PeerAddr{}, nil
	}

	parts := strings.Split(body, " ")
	out := make([]PeerAddr, 0, len(parts))

	for _, part := range parts {
		pair := strings.SplitN(part, ",", 2)
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed peer entry %q", part)
		}

		port, err := strconv.Atoi(pair[1])
		if err != nil {
			return nil, fmt.Errorf("malformed peer port in %q: %w", part, err)
		}

		out = append(out, PeerAddr{IP: pair[0], Port: port})
	}

	return out, nil
}

// SendPeers writes "PEERS\n<serialized>\n".
func SendPeers(f *FramedConn, peers []PeerAddr) error {
	return f.WriteString(fmt.Sprintf("%s\n%s\n", VerbPeers, SerializePeers(peers)))
}

// ReadPeers reads a "PEERS\n<body>\n" response already past its header
// line (the caller has already consumed and checked the verb line).
func ReadPeers(f *FramedConn) ([]PeerAddr, error) {
	body, err := f.ReadLine()
	if err != nil {
		return nil, err
	}
	return ParsePeers(string(body))
}

// SendPeerPort writes "PEER-PORT\n<port-or--1>\n".
func SendPeerPort(f *FramedConn, port int) error {
	return f.WriteString(fmt.Sprintf("%s\n%d\n", VerbPeerPort, port))
}

// EncodeBlock marshals a block to its JSON wire form. Block-level keys
// follow the struct's field order, so this is not the key-sorted
// canonical encoding the block hash is computed over.
func EncodeBlock(b chain.Block) ([]byte, error) {
	return json.Marshal(b)
}

// DecodeBlock parses a block from its JSON wire form.
func DecodeBlock(body []byte) (chain.Block, error) {
	var b chain.Block
	if err := json.Unmarshal(body, &b); err != nil {
		return chain.Block{}, err
	}
	return b, nil
}

// SendBlock writes "BLOCK <len> <tag>\n<block_bytes>".
func SendBlock(f *FramedConn, b chain.Block, tag BlockTag) error {
	body, err := EncodeBlock(b)
	if err != nil {
		return fmt.Errorf("encoding block for send: %w", err)
	}

	if err := f.WriteString(fmt.Sprintf("%s %d %s\n", VerbBlock, len(body), tag)); err != nil {
		return err
	}

	return f.WriteBytes(body)
}

// ReadBlockBody reads exactly bodyLen bytes and decodes them as a block;
// the caller has already parsed and validated the BLOCK header line.
func ReadBlockBody(f *FramedConn, bodyLen int) (chain.Block, error) {
	body, err := f.ReadExact(bodyLen)
	if err != nil {
		return chain.Block{}, err
	}
	return DecodeBlock(body)
}

// SendGetChain writes "GET-CHAIN\n".
func SendGetChain(f *FramedConn) error {
	return f.WriteString(VerbGetChain + "\n")
}

// ParsedHeader is a decoded verb line: a verb and its space-separated
// decimal arguments.
type ParsedHeader struct {
	Verb string
	Args []string
}

// ParseHeader splits a verb line of the form "VERB arg1 arg2 ...".
func ParseHeader(line string) ParsedHeader {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ParsedHeader{}
	}
	return ParsedHeader{Verb: fields[0], Args: fields[1:]}
}

// ReadHeader reads one line and parses it as a verb header.
func ReadHeader(f *FramedConn) (ParsedHeader, error) {
	line, err := f.ReadLine()
	if err != nil {
		return ParsedHeader{}, err
	}
	return ParseHeader(string(line)), nil
}
