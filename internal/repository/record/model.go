// Package record holds the msgpack layout of persisted signups, shared by the
// tarantool and redis snapshot backends.
package record

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Xausdorf/signup-bot/internal/domain"
)

// CurrentKey - primary key of the only snapshot tuple.
const CurrentKey = "current"

type SignupModel struct {
	ID        string
	ChannelID string
	Title     string
	IsOpen    bool
	Access    string
	Limits    map[string]int
	// Entries - [userID, optionID] pairs in join order.
	Entries   [][2]string
	CreatedAt int64
	UpdatedAt int64
}

type SnapshotModel struct {
	Key      string
	Revision string
	SavedAt  int64
	Signups  []SignupModel
}

const (
	signupModelFields   = 9
	snapshotModelFields = 4
)

func NewSignupModel(s *domain.Signup) SignupModel {
	m := SignupModel{
		ID:        s.ID,
		ChannelID: s.ChannelID,
		Title:     s.Title,
		IsOpen:    s.IsOpen,
		Access:    string(s.Access),
		Limits:    make(map[string]int, len(s.Limits)),
		Entries:   make([][2]string, 0, len(s.JoinOrder)),
		CreatedAt: s.CreatedAt.Unix(),
		UpdatedAt: s.UpdatedAt.Unix(),
	}
	for opt, limit := range s.Limits {
		m.Limits[string(opt)] = limit
	}
	for _, uid := range s.JoinOrder {
		m.Entries = append(m.Entries, [2]string{uid, string(s.Selections[uid])})
	}
	return m
}

func (m *SignupModel) ToSignup() *domain.Signup {
	s := &domain.Signup{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		Title:      m.Title,
		IsOpen:     m.IsOpen,
		Access:     domain.AccessAll,
		Limits:     make(map[domain.OptionID]int, len(m.Limits)),
		Selections: make(map[string]domain.OptionID, len(m.Entries)),
		CreatedAt:  time.Unix(m.CreatedAt, 0),
		UpdatedAt:  time.Unix(m.UpdatedAt, 0),
	}
	if mode, err := domain.ParseAccessMode(m.Access); err == nil {
		s.Access = mode
	}
	for opt, limit := range m.Limits {
		s.Limits[domain.OptionID(opt)] = limit
	}
	for _, e := range m.Entries {
		s.Selections[e[0]] = domain.OptionID(e[1])
		s.JoinOrder = append(s.JoinOrder, e[0])
	}
	return s
}

func NewSnapshotModel(signups []*domain.Signup, savedAt time.Time) *SnapshotModel {
	m := &SnapshotModel{
		Key:      CurrentKey,
		Revision: uuid.NewString(),
		SavedAt:  savedAt.Unix(),
		Signups:  make([]SignupModel, len(signups)),
	}
	for i, s := range signups {
		m.Signups[i] = NewSignupModel(s)
	}
	return m
}

func (m *SnapshotModel) ToSignups() []*domain.Signup {
	out := make([]*domain.Signup, len(m.Signups))
	for i := range m.Signups {
		out[i] = m.Signups[i].ToSignup()
	}
	return out
}

func (m *SignupModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(signupModelFields); err != nil {
		return err
	}
	if err := e.EncodeString(m.ID); err != nil {
		return err
	}
	if err := e.EncodeString(m.ChannelID); err != nil {
		return err
	}
	if err := e.EncodeString(m.Title); err != nil {
		return err
	}
	if err := e.EncodeBool(m.IsOpen); err != nil {
		return err
	}
	if err := e.EncodeString(m.Access); err != nil {
		return err
	}
	if err := e.EncodeMapLen(len(m.Limits)); err != nil {
		return err
	}
	for opt, limit := range m.Limits {
		if err := e.EncodeString(opt); err != nil {
			return err
		}
		if err := e.EncodeInt(int64(limit)); err != nil {
			return err
		}
	}
	if err := e.EncodeArrayLen(len(m.Entries)); err != nil {
		return err
	}
	for _, entry := range m.Entries {
		if err := e.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := e.EncodeString(entry[0]); err != nil {
			return err
		}
		if err := e.EncodeString(entry[1]); err != nil {
			return err
		}
	}
	if err := e.EncodeInt(m.CreatedAt); err != nil {
		return err
	}
	if err := e.EncodeInt(m.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (m *SignupModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != signupModelFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if m.ID, err = d.DecodeString(); err != nil {
		return err
	}
	if m.ChannelID, err = d.DecodeString(); err != nil {
		return err
	}
	if m.Title, err = d.DecodeString(); err != nil {
		return err
	}
	if m.IsOpen, err = d.DecodeBool(); err != nil {
		return err
	}
	if m.Access, err = d.DecodeString(); err != nil {
		return err
	}
	if l, err = d.DecodeMapLen(); err != nil {
		return err
	}
	m.Limits = make(map[string]int, max(l, 0))
	for j := 0; j < l; j++ {
		var opt string
		if opt, err = d.DecodeString(); err != nil {
			return err
		}
		var limit int
		if limit, err = d.DecodeInt(); err != nil {
			return err
		}
		m.Limits[opt] = limit
	}
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	m.Entries = make([][2]string, max(l, 0))
	for i := 0; i < l; i++ {
		var pair int
		if pair, err = d.DecodeArrayLen(); err != nil {
			return err
		}
		if pair != 2 {
			return fmt.Errorf("entry len doesn't match: %d", pair)
		}
		if m.Entries[i][0], err = d.DecodeString(); err != nil {
			return err
		}
		if m.Entries[i][1], err = d.DecodeString(); err != nil {
			return err
		}
	}
	if m.CreatedAt, err = d.DecodeInt64(); err != nil {
		return err
	}
	if m.UpdatedAt, err = d.DecodeInt64(); err != nil {
		return err
	}
	return nil
}

func (m *SnapshotModel) EncodeMsgpack(e *msgpack.Encoder) error {
	if err := e.EncodeArrayLen(snapshotModelFields); err != nil {
		return err
	}
	if err := e.EncodeString(m.Key); err != nil {
		return err
	}
	if err := e.EncodeString(m.Revision); err != nil {
		return err
	}
	if err := e.EncodeInt(m.SavedAt); err != nil {
		return err
	}
	if err := e.EncodeArrayLen(len(m.Signups)); err != nil {
		return err
	}
	for i := range m.Signups {
		if err := m.Signups[i].EncodeMsgpack(e); err != nil {
			return err
		}
	}
	return nil
}

func (m *SnapshotModel) DecodeMsgpack(d *msgpack.Decoder) error {
	var err error
	var l int
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	if l != snapshotModelFields {
		return fmt.Errorf("array len doesn't match: %d", l)
	}
	if m.Key, err = d.DecodeString(); err != nil {
		return err
	}
	if m.Revision, err = d.DecodeString(); err != nil {
		return err
	}
	if m.SavedAt, err = d.DecodeInt64(); err != nil {
		return err
	}
	if l, err = d.DecodeArrayLen(); err != nil {
		return err
	}
	m.Signups = make([]SignupModel, max(l, 0))
	for i := 0; i < l; i++ {
		if err = m.Signups[i].DecodeMsgpack(d); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes a snapshot for backends that store it as a single blob.
func Marshal(signups []*domain.Signup, savedAt time.Time) ([]byte, error) {
	return msgpack.Marshal(NewSnapshotModel(signups, savedAt))
}

func Unmarshal(data []byte) ([]*domain.Signup, error) {
	var m SnapshotModel
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("could not decode snapshot: %w", err)
	}
	return m.ToSignups(), nil
}
