package chat

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/roomcast/roomcast/pkg/protocol"
)

// DefaultRoom is where every session lands after the handshake. The
// registry guarantees it exists regardless of configuration.
const DefaultRoom = "main"

// Registry is the single source of truth for routing: which sessions
// exist, which room each one occupies, and where their outbound queues
// are. Every operation runs under one exclusive lock and does no I/O
// while holding it; a slow socket can therefore never stall a
// broadcast, it can only fill its own queue.
type Registry struct {
	mu        sync.Mutex
	sessions  map[ID]*Session
	rooms     map[string]map[ID]struct{}
	queueSize int
	guestSeq  int
	log       *slog.Logger
}

// NewRegistry declares the fixed room set up front. Rooms are not
// created dynamically; joining an undeclared room fails.
func NewRegistry(roomNames []string, queueSize int, log *slog.Logger) *Registry {
	if queueSize <= 0 {
		queueSize = 256
	}
	rooms := make(map[string]map[ID]struct{}, len(roomNames)+1)
	rooms[DefaultRoom] = make(map[ID]struct{})
	for _, name := range roomNames {
		if _, ok := rooms[name]; !ok {
			rooms[name] = make(map[ID]struct{})
		}
	}
	return &Registry{
		sessions:  make(map[ID]*Session),
		rooms:     rooms,
		queueSize: queueSize,
		log:       log,
	}
}

// Register creates a session for id. The display name is uniquified at
// selection time: an empty name becomes a generated guest handle, a
// taken name gets a numeric suffix. Registering an identity twice is a
// registry-invariant violation and returns ErrDuplicateIdentity rather
// than aborting.
func (r *Registry) Register(id ID, name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return nil, fmt.Errorf("register %q: %w", id, ErrDuplicateIdentity)
	}
	sess := newSession(id, r.pickNameLocked(name), r.queueSize)
	r.sessions[id] = sess
	r.log.Debug("session registered", "conn", string(id), "name", sess.Name)
	return sess, nil
}

// JoinRoom atomically moves the session into room: remove from the old
// member set, add to the new one, update the session's room pointer,
// all under one lock acquisition. On success it enqueues a JoinedRoom
// response onto the mover's own queue and returns the room left behind
// ("" when the session had none yet).
func (r *Registry) JoinRoom(id ID, room string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return "", fmt.Errorf("join room %q: %w", room, ErrUnknownSession)
	}
	members, ok := r.rooms[room]
	if !ok {
		return "", fmt.Errorf("join room %q: %w", room, ErrUnknownRoom)
	}
	if sess.Room == room {
		return "", fmt.Errorf("join room %q: %w", room, ErrAlreadyInRoom)
	}

	prev := sess.Room
	if prev != "" {
		delete(r.rooms[prev], id)
	}
	members[id] = struct{}{}
	sess.Room = room

	if !sess.deliver(protocol.JoinedRoom{Room: room}) {
		r.log.Warn("outbound queue full, dropping response", "conn", string(id), "name", sess.Name)
	}
	return prev, nil
}

// Broadcast enqueues res onto the queue of every current member of
// room except exclude (pass "" to exclude nobody). Membership and
// queues are read under the registry lock, so a session that is
// mid-leave either receives the message or is already gone; its queue
// is never written after it closes.
func (r *Registry) Broadcast(room string, res protocol.Message, exclude ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(room, res, exclude)
}

// Publish formats text as a public chat line from the sender and
// broadcasts it to the sender's current room, sender included. Reading
// the sender's room and fanning out happen under the same lock
// acquisition, so a concurrent room move cannot tear the two apart.
func (r *Registry) Publish(from ID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[from]
	if !ok {
		return fmt.Errorf("publish: %w", ErrUnknownSession)
	}
	r.broadcastLocked(sess.Room, protocol.ChatPublic{
		Room: sess.Room,
		From: sess.Name,
		Text: text,
	}, "")
	return nil
}

// PrivateMessage resolves the recipient's display name by scanning the
// live sessions and delivers exactly one ChatPrivate. Sending to
// yourself is a harmless no-op, not an error.
func (r *Registry) PrivateMessage(from ID, to string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.sessions[from]
	if !ok {
		return fmt.Errorf("private message: %w", ErrUnknownSession)
	}
	recipient, ok := lo.Find(lo.Values(r.sessions), func(s *Session) bool {
		return s.Name == to
	})
	if !ok {
		return fmt.Errorf("private message to %q: %w", to, ErrRecipientNotFound)
	}
	if recipient.ID == from {
		return nil
	}
	if !recipient.deliver(protocol.ChatPrivate{From: sender.Name, Text: text}) {
		r.log.Warn("outbound queue full, dropping response", "conn", string(recipient.ID), "name", recipient.Name)
	}
	return nil
}

// Notify enqueues a SystemNotice onto one session's queue. Unknown
// identities are ignored; the caller is usually reporting an error to
// a connection that may already be gone.
func (r *Registry) Notify(id ID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return
	}
	if !sess.deliver(protocol.SystemNotice{Room: sess.Room, Text: text}) {
		r.log.Warn("outbound queue full, dropping response", "conn", string(id), "name", sess.Name)
	}
}

// ListUsers snapshots the display names of every registered session,
// independent of room.
func (r *Registry) ListUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := lo.Map(lo.Values(r.sessions), func(s *Session, _ int) string {
		return s.Name
	})
	sort.Strings(names)
	return names
}

// ListRooms snapshots the declared room names.
func (r *Registry) ListRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := lo.Keys(r.rooms)
	sort.Strings(names)
	return names
}

// Lookup returns a snapshot of the session's display name and current
// room.
func (r *Registry) Lookup(id ID) (name, room string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return "", "", false
	}
	return sess.Name, sess.Room, true
}

// Remove deregisters id, clears its room membership and closes its
// outbound queue, then returns the removed session so the caller can
// broadcast a departure notice. Removing an unknown identity returns
// nil; it is not an error.
func (r *Registry) Remove(id ID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	if sess.Room != "" {
		delete(r.rooms[sess.Room], id)
	}
	// All delivery happens under the lock we hold, so nobody can write
	// to the queue after this close.
	close(sess.outgoing)
	r.log.Debug("session removed", "conn", string(id), "name", sess.Name)
	return sess
}

// SessionCount reports the number of registered sessions.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) broadcastLocked(room string, res protocol.Message, exclude ID) {
	members, ok := r.rooms[room]
	if !ok {
		r.log.Error("broadcast to undeclared room", "room", room)
		return
	}
	for id := range members {
		if id == exclude {
			continue
		}
		sess := r.sessions[id]
		if sess == nil {
			r.log.Error("room member without session", "room", room, "conn", string(id))
			continue
		}
		if !sess.deliver(res) {
			r.log.Warn("outbound queue full, dropping broadcast", "conn", string(id), "name", sess.Name)
		}
	}
}

// pickNameLocked enforces display-name uniqueness at selection time.
func (r *Registry) pickNameLocked(name string) string {
	if name == "" {
		r.guestSeq++
		name = fmt.Sprintf("guest-%d", r.guestSeq)
	}
	if !r.nameTakenLocked(name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if !r.nameTakenLocked(candidate) {
			return candidate
		}
	}
}

func (r *Registry) nameTakenLocked(name string) bool {
	for _, sess := range r.sessions {
		if sess.Name == name {
			return true
		}
	}
	return false
}
