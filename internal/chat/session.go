package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/realtime"
)

// Directory devuelve las conversaciones existentes del usuario actual.
type Directory interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
}

// History devuelve el historial con un partner.
type History interface {
	ListMessages(ctx context.Context, partnerID string) ([]domain.Message, error)
}

// PartnerResolver resuelve el perfil del partner según el rol del usuario actual.
type PartnerResolver interface {
	ResolvePartner(ctx context.Context, partnerID string, role domain.Role) (domain.ChatPartner, error)
}

// LiveChannel es el canal en vivo compartido por toda la sesión.
type LiveChannel interface {
	Open(ctx context.Context, handler realtime.FrameHandler) error
	Send(ctx context.Context, frame domain.OutboundFrame) error
	State() domain.ChannelState
	Close() error
}

var (
	ErrNoIdentity     = errors.New("chat session requires an identity")
	ErrNotConfigured  = errors.New("chat session not configured")
	ErrSessionClosed  = errors.New("chat session closed")
	ErrEmptyPartnerID = errors.New("partner id is required")
)

// Deps agrupa los colaboradores externos de la sesión.
type Deps struct {
	Directory Directory
	History   History
	Partners  PartnerResolver
	Channel   LiveChannel
	Logger    *zap.Logger
	Clock     func() time.Time
}

// Snapshot es una copia del estado visible de la sesión.
type Snapshot struct {
	Identity             domain.Identity
	SelectedPartnerID    string
	Partner              *domain.ChatPartner
	Timeline             []domain.Message
	Conversations        []domain.Conversation
	Channel              domain.ChannelState
	LoadingConversations bool
	LoadingPartner       bool
	LoadingHistory       bool
	Draft                string
	Err                  error
}

// Option ajusta la sesión en construcción.
type Option func(*Session)

// WithObserver registra un callback que recibe el estado tras cada cambio.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Session) { s.observer = fn }
}

func WithDayLabels(labels DayLabels) Option {
	return func(s *Session) { s.labels = labels }
}

// WithPartnerScope hace que sólo entren al timeline los frames del partner
// seleccionado. Por defecto cualquier frame ajeno al usuario entra.
func WithPartnerScope() Option {
	return func(s *Session) { s.partnerScoped = true }
}

// Session es la única autoridad sobre el timeline visible y el partner seleccionado.
type Session struct {
	identity domain.Identity
	deps     Deps
	logger   *zap.Logger
	now      func() time.Time
	labels   DayLabels
	observer func(Snapshot)
	ingest   IngestFilter

	partnerScoped bool

	mu            sync.Mutex
	selected      string
	generation    uint64
	partner       *domain.ChatPartner
	timeline      Timeline
	conversations []domain.Conversation
	channelState  domain.ChannelState
	loadingConvs  bool
	loadingPart   bool
	loadingHist   bool
	draft         string
	lastErr       error
	lastLocal     int64
	closed        bool

	// Entrega al observer: una sola goroutine a la vez, siempre el snapshot más nuevo al final.
	delivering bool
	pending    *Snapshot
}

// NewSession crea el estado de la sesión para una identidad ya disponible.
func NewSession(identity domain.Identity, deps Deps, opts ...Option) (*Session, error) {
	if identity.IsZero() {
		return nil, ErrNoIdentity
	}
	if deps.Directory == nil || deps.History == nil || deps.Partners == nil || deps.Channel == nil {
		return nil, ErrNotConfigured
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	s := &Session{
		identity: identity,
		deps:     deps,
		logger:   logger.With(zap.String("user_id", identity.ID)),
		now:      now,
		labels:   DefaultDayLabels(),
		ingest:   SelfEchoFilter(identity.ID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start abre el canal en vivo una única vez. Si falla, la sesión sigue usable
// sin tiempo real hasta que la vista se vuelva a montar.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	if err := s.deps.Channel.Open(ctx, s); err != nil {
		s.logger.Warn("live channel unavailable", zap.Error(err))
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.notify()
		return err
	}
	return nil
}

// Close cierra el canal y deja la sesión inutilizable. Es idempotente.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.deps.Channel.Close()
	s.logger.Info("chat session closed")
	return err
}

// LoadConversations reemplaza la lista; si falla conserva la anterior y deja el error visible.
func (s *Session) LoadConversations(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.loadingConvs = true
	s.mu.Unlock()
	s.notify()

	list, err := s.deps.Directory.ListConversations(ctx)

	s.mu.Lock()
	s.loadingConvs = false
	if err != nil {
		s.lastErr = err
	} else {
		s.conversations = append([]domain.Conversation(nil), list...)
		s.lastErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("load conversations failed", zap.Error(err))
	}
	s.notify()
	return err
}

// SearchConversations filtra la lista actual por nombre del partner.
func (s *Session) SearchConversations(query string) []domain.Conversation {
	s.mu.Lock()
	list := append([]domain.Conversation(nil), s.conversations...)
	s.mu.Unlock()
	return FilterConversations(list, query)
}

// SelectConversation cambia de partner: limpia el timeline y pide perfil e
// historial en paralelo. Cada resultado se aplica apenas llega, salvo que la
// selección haya cambiado mientras tanto.
func (s *Session) SelectConversation(ctx context.Context, partnerID string) error {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return ErrEmptyPartnerID
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.generation++
	gen := s.generation
	s.selected = partnerID
	s.partner = nil
	s.timeline.Reset()
	s.loadingPart = true
	s.loadingHist = true
	role := s.identity.Role
	s.mu.Unlock()
	s.notify()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		partner, err := s.deps.Partners.ResolvePartner(ctx, partnerID, role)
		s.applyPartner(gen, partnerID, partner, err)
	}()
	go func() {
		defer wg.Done()
		history, err := s.deps.History.ListMessages(ctx, partnerID)
		s.applyHistory(gen, partnerID, history, err)
	}()
	wg.Wait()
	return nil
}

func (s *Session) applyPartner(gen uint64, partnerID string, partner domain.ChatPartner, err error) {
	s.mu.Lock()
	if !s.currentLocked(gen, partnerID) {
		s.mu.Unlock()
		s.logger.Debug("discarding stale partner profile", zap.String("partner_id", partnerID))
		return
	}
	s.loadingPart = false
	if err == nil {
		p := partner
		s.partner = &p
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("resolve partner failed", zap.String("partner_id", partnerID), zap.Error(err))
	}
	s.notify()
}

func (s *Session) applyHistory(gen uint64, partnerID string, history []domain.Message, err error) {
	s.mu.Lock()
	if !s.currentLocked(gen, partnerID) {
		s.mu.Unlock()
		s.logger.Debug("discarding stale history", zap.String("partner_id", partnerID))
		return
	}
	s.loadingHist = false
	added := 0
	if err == nil {
		added = s.timeline.MergeHistory(history)
	}
	total := s.timeline.Len()
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("load history failed", zap.String("partner_id", partnerID), zap.Error(err))
	} else {
		s.logger.Debug("history loaded",
			zap.String("partner_id", partnerID),
			zap.Int("messages", added),
			zap.Int("timeline", total),
		)
	}
	s.notify()
}

func (s *Session) currentLocked(gen uint64, partnerID string) bool {
	return !s.closed && s.generation == gen && s.selected == partnerID
}

// SetDraft actualiza el texto en composición.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SendMessage agrega el mensaje al timeline en forma optimista y lo envía por el
// canal sin esperar confirmación. Cuerpo vacío, canal no abierto o ningún partner
// seleccionado: no hace nada.
func (s *Session) SendMessage(ctx context.Context, body string) (domain.Message, bool) {
	if strings.TrimSpace(body) == "" {
		return domain.Message{}, false
	}

	s.mu.Lock()
	if s.closed || s.selected == "" || s.deps.Channel.State() != domain.ChannelOpen {
		s.mu.Unlock()
		return domain.Message{}, false
	}
	now := s.now()
	msg := domain.Message{
		ID:         s.nextLocalIDLocked(now),
		SenderID:   s.identity.ID,
		SenderName: s.identity.Name,
		SenderRole: s.identity.Role,
		Body:       body,
		Timestamp:  now,
		Read:       false,
	}
	s.timeline.Insert(msg)
	s.touchConversationLocked(s.selected, body, now)
	s.draft = ""
	frame := domain.OutboundFrame{ReceiverID: s.selected, Message: body}
	s.mu.Unlock()
	s.notify()

	if err := s.deps.Channel.Send(ctx, frame); err != nil {
		s.logger.Warn("send message failed", zap.String("partner_id", frame.ReceiverID), zap.Error(err))
	}
	return msg, true
}

// nextLocalIDLocked deriva un id local del reloj, único dentro de la sesión.
func (s *Session) nextLocalIDLocked(now time.Time) domain.MessageID {
	n := now.UnixNano()
	if n <= s.lastLocal {
		n = s.lastLocal + 1
	}
	s.lastLocal = n
	return domain.LocalID("local-" + strconv.FormatInt(n, 10))
}

// OnChannelMessage procesa un frame entrante del canal en vivo.
func (s *Session) OnChannelMessage(raw []byte) {
	msg, err := domain.DecodeMessage(raw)
	if err != nil {
		s.logger.Warn("discarding channel frame", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.ingest(msg) {
		s.mu.Unlock()
		s.logger.Debug("self echo suppressed", zap.String("message_id", msg.ID.String()))
		return
	}
	s.touchConversationLocked(msg.SenderID, msg.Body, msg.Timestamp)
	if !s.partnerScoped || msg.SenderID == s.selected {
		s.timeline.Insert(msg)
	}
	s.mu.Unlock()
	s.notify()
}

// OnChannelState refleja en la sesión el estado del canal.
func (s *Session) OnChannelState(state domain.ChannelState) {
	s.mu.Lock()
	s.channelState = state
	s.mu.Unlock()
	s.logger.Info("channel state", zap.Stringer("state", state))
	s.notify()
}

// touchConversationLocked refresca el preview de una conversación existente.
// Nunca crea conversaciones: el directorio es la fuente de verdad.
func (s *Session) touchConversationLocked(partnerID, body string, at time.Time) {
	for i := range s.conversations {
		if s.conversations[i].PartnerID != partnerID {
			continue
		}
		if at.Before(s.conversations[i].LastMessageTimestamp) {
			return
		}
		s.conversations[i].LastMessage = body
		s.conversations[i].LastMessageTimestamp = at
		return
	}
}

// Days agrupa el timeline actual por día calendario.
func (s *Session) Days() []DayBucket {
	s.mu.Lock()
	msgs := s.timeline.Messages()
	labels := s.labels
	s.mu.Unlock()
	return GroupByDay(msgs, s.now(), labels)
}

// Snapshot devuelve una copia del estado de la sesión.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Identity:             s.identity,
		SelectedPartnerID:    s.selected,
		Timeline:             s.timeline.Messages(),
		Conversations:        append([]domain.Conversation(nil), s.conversations...),
		Channel:              s.channelState,
		LoadingConversations: s.loadingConvs,
		LoadingPartner:       s.loadingPart,
		LoadingHistory:       s.loadingHist,
		Draft:                s.draft,
		Err:                  s.lastErr,
	}
	if s.partner != nil {
		p := *s.partner
		snap.Partner = &p
	}
	return snap
}

// notify entrega snapshots en orden. Si otra goroutine ya está entregando, deja
// el snapshot pendiente y esa goroutine lo entrega al terminar; los intermedios
// se descartan. El observer nunca corre con s.mu tomado y puede llamar a la sesión.
func (s *Session) notify() {
	if s.observer == nil {
		return
	}
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.pending = &snap
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for s.pending != nil {
		next := *s.pending
		s.pending = nil
		s.mu.Unlock()
		s.observer(next)
		s.mu.Lock()
	}
	s.delivering = false
	s.mu.Unlock()
}
