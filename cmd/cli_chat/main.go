package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/api"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/chat"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/config"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/realtime"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	// El log va a archivo para no ensuciar la terminal.
	zcfg := zap.NewDevelopmentConfig()
	zcfg.OutputPaths = []string{cfg.LogFile}
	zcfg.ErrorOutputPaths = []string{cfg.LogFile}
	logger, err := zcfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	role, err := domain.ParseRole(cfg.UserRole)
	if err != nil {
		log.Fatal(err)
	}
	identity := domain.Identity{ID: cfg.UserID, Name: cfg.UserName, Role: role, Token: cfg.AuthToken}
	loc, _ := cfg.Location()

	client := api.NewClient(cfg.APIBaseURL, cfg.AuthToken, logger, api.WithTimeout(cfg.HTTPTimeout))
	wsBase := cfg.WSBaseURL
	if wsBase == "" {
		wsBase = cfg.APIBaseURL
	}
	chatURL, err := realtime.ChatURL(wsBase, cfg.AuthToken)
	if err != nil {
		log.Fatal(err)
	}

	channel := realtime.NewChannel(chatURL, logger)
	v := &view{selfID: identity.ID, seen: make(map[string]bool)}
	labels := chat.DayLabels{Today: "Hoy", Yesterday: "Ayer", DateLayout: cfg.DateLayout, Location: loc}
	session, err := chat.NewSession(identity, chat.Deps{
		Directory: client,
		History:   client,
		Partners:  client,
		Channel:   channel,
		Logger:    logger,
	}, chat.WithObserver(v.observe), chat.WithDayLabels(labels))
	if err != nil {
		log.Fatal(err)
	}
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		fmt.Printf("Sin tiempo real (%v). Podés leer historial pero no enviar.\n", err)
	} else {
		go func() {
			<-channel.Done()
			fmt.Println("\nEl canal en vivo se cerró. Reinicia el chat para reconectar.")
		}()
	}
	if err := session.LoadConversations(ctx); err != nil {
		fmt.Printf("No se pudieron cargar las conversaciones: %v\n", err)
	}

	printHelp()
	printConversations(session.Snapshot().Conversations)

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "":
			continue
		case "/salir":
			return
		case "/ayuda":
			printHelp()
		case "/reload":
			if err := session.LoadConversations(ctx); err != nil {
				fmt.Printf("Error recargando: %v\n", err)
			}
			printConversations(session.Snapshot().Conversations)
		case "/list":
			printConversations(session.Snapshot().Conversations)
		case "/search":
			printConversations(session.SearchConversations(arg))
		case "/open":
			partnerID := resolveTarget(session.Snapshot().Conversations, arg)
			v.setQuiet(true)
			if err := session.SelectConversation(ctx, partnerID); err != nil {
				fmt.Printf("Error abriendo conversación: %v\n", err)
				v.setQuiet(false)
				continue
			}
			renderConversation(session, client, v)
			v.setQuiet(false)
		default:
			if strings.HasPrefix(cmd, "/") {
				fmt.Println("Comando desconocido. Usa /ayuda.")
				continue
			}
			if _, ok := session.SendMessage(ctx, line); !ok {
				fmt.Println("No se envió: abre una conversación con /open y verifica el canal.")
				continue
			}
		}
	}
}

func printHelp() {
	fmt.Println("---- Chat MedAssist ----")
	fmt.Println("/list                lista de conversaciones")
	fmt.Println("/search <texto>      busca por nombre")
	fmt.Println("/open <n|id>         abre una conversación")
	fmt.Println("/reload              recarga la lista")
	fmt.Println("/salir               termina")
	fmt.Println("Cualquier otro texto se envía al partner abierto.")
}

func printConversations(list []domain.Conversation) {
	if len(list) == 0 {
		fmt.Println("Sin conversaciones.")
		return
	}
	for i, c := range list {
		when := ""
		if !c.LastMessageTimestamp.IsZero() {
			when = humanize.Time(c.LastMessageTimestamp)
		}
		fmt.Printf("[%d] %s (%s) %s · %s\n", i+1, c.PartnerName, c.PartnerID, c.LastMessage, when)
	}
}

// resolveTarget acepta el índice mostrado por /list o un partner id directo.
func resolveTarget(list []domain.Conversation, arg string) string {
	arg = strings.TrimSpace(arg)
	if idx, err := strconv.Atoi(arg); err == nil && idx >= 1 && idx <= len(list) {
		return list[idx-1].PartnerID
	}
	return arg
}

func renderConversation(session *chat.Session, client *api.Client, v *view) {
	snap := session.Snapshot()
	if snap.Partner != nil {
		status := "no disponible"
		if snap.Partner.Available {
			status = "disponible"
		}
		fmt.Printf("==== %s · %s (%s) ====\n", snap.Partner.Name, snap.Partner.Specialization, status)
		if avatar := client.AvatarURL(snap.Partner.Avatar); avatar != "" {
			fmt.Printf("avatar: %s\n", avatar)
		}
	} else {
		fmt.Printf("==== %s ====\n", snap.SelectedPartnerID)
	}
	if snap.Err != nil && !errors.Is(snap.Err, context.Canceled) {
		fmt.Printf("(aviso: %v)\n", snap.Err)
	}
	for _, day := range session.Days() {
		fmt.Printf("-- %s --\n", day.Label)
		for _, m := range day.Messages {
			fmt.Println(formatMessage(m, snap.Identity.ID))
		}
	}
	v.markSeen(snap.Timeline)
}

func formatMessage(m domain.Message, selfID string) string {
	who := m.SenderName
	if m.SenderID == selfID {
		who = "Tú"
	} else if who == "" {
		who = m.SenderID
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Local().Format("15:04"), who, m.Body)
}

// view imprime lo que llega por el canal mientras el usuario escribe.
type view struct {
	mu        sync.Mutex
	selfID    string
	quiet     bool
	lastState domain.ChannelState
	seen      map[string]bool
}

func (v *view) setQuiet(q bool) {
	v.mu.Lock()
	v.quiet = q
	v.mu.Unlock()
}

func (v *view) markSeen(msgs []domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, m := range msgs {
		v.seen[m.ID.String()] = true
	}
}

func (v *view) observe(snap chat.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if snap.Channel != v.lastState {
		v.lastState = snap.Channel
		fmt.Printf("\n[canal %s]\n", snap.Channel)
	}
	if v.quiet {
		return
	}
	for _, m := range snap.Timeline {
		key := m.ID.String()
		if v.seen[key] {
			continue
		}
		v.seen[key] = true
		if m.SenderID == v.selfID {
			continue
		}
		prefix := ""
		if m.SenderID != snap.SelectedPartnerID {
			prefix = "(otra conversación) "
		}
		fmt.Printf("\n%s%s\n> ", prefix, formatMessage(m, v.selfID))
	}
}
