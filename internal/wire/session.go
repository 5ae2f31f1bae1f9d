package wire

import (
	"bufio"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// session is one accepted connection's handle, held by the registry under
// the trader id once registration completes (spec §3 "Ownership": "sessions
// back-reference traders" is resolved by having the registry hold the
// session keyed by trader id rather than the session holding a trader
// pointer). The connection id comes from github.com/google/uuid, grounded
// on the teacher's internal/net/messages.go's use of the same package for
// wire identifiers.
type session struct {
	id       string
	conn     net.Conn
	writeMu  sync.Mutex
	traderID string
	log      zerolog.Logger
}

func newSession(conn net.Conn, log zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:   id,
		conn: conn,
		log:  log.With().Str("session_id", id).Logger(),
	}
}

// Push writes one protocol line to the session's socket, terminated with
// \n, matching the original's send(socket, msg.c_str(), msg.length(), 0)
// calls in MarketServer::onTradeExecuted/onSettlementComplete. Concurrent
// Push calls (one from the matching goroutine notifying a trade, one from
// this session's own read loop replying to a submit) are serialized by
// writeMu so a line is never interleaved with another.
func (s *session) Push(line string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		s.log.Warn().Err(err).Msg("wire: failed to push line to session")
	}
}

func newScanner(conn net.Conn) *bufio.Scanner {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 64*1024)
	return scanner
}
