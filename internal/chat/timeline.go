package chat

import (
	"sort"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

// Timeline es la secuencia de mensajes del partner seleccionado.
// Se mantiene ordenada por timestamp (los empates conservan el orden de llegada)
// y sin duplicados de ids confirmados.
type Timeline struct {
	msgs []domain.Message
}

// Insert agrega m en su posición cronológica. Devuelve false si el id ya estaba.
func (t *Timeline) Insert(m domain.Message) bool {
	if m.ID.IsConfirmed() && t.indexOf(m.ID) >= 0 {
		return false
	}
	i := sort.Search(len(t.msgs), func(i int) bool {
		return t.msgs[i].Timestamp.After(m.Timestamp)
	})
	t.msgs = append(t.msgs, domain.Message{})
	copy(t.msgs[i+1:], t.msgs[i:])
	t.msgs[i] = m
	return true
}

// MergeHistory incorpora el historial recién llegado alrededor de los mensajes
// en vivo que hayan entrado mientras se pedía. Devuelve cuántos se agregaron.
func (t *Timeline) MergeHistory(history []domain.Message) int {
	added := 0
	for _, m := range history {
		if t.Insert(m) {
			added++
		}
	}
	return added
}

// Confirm reemplaza un id local por el id del servidor sin duplicar el mensaje.
// Hoy nadie lo invoca en el flujo de envío: el backend no devuelve ack.
func (t *Timeline) Confirm(localID, serverID string) bool {
	i := t.indexOf(domain.LocalID(localID))
	if i < 0 {
		return false
	}
	confirmed := domain.ConfirmedID(serverID)
	if t.indexOf(confirmed) >= 0 {
		// El servidor ya lo entregó por otra vía: se descarta la copia local.
		t.msgs = append(t.msgs[:i], t.msgs[i+1:]...)
		return true
	}
	t.msgs[i].ID = confirmed
	return true
}

func (t *Timeline) Reset() {
	t.msgs = nil
}

func (t *Timeline) Len() int {
	return len(t.msgs)
}

// Messages devuelve una copia segura para render.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Timeline) indexOf(id domain.MessageID) int {
	for i := range t.msgs {
		if t.msgs[i].ID == id {
			return i
		}
	}
	return -1
}
