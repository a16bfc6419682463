package receive

import (
	"context"
	"crypto/ed25519"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"swarmsync/internal/configcache"
	"swarmsync/internal/crypto"
	"swarmsync/internal/database"
	"swarmsync/internal/models"
	"swarmsync/internal/protocol"
)

const (
	testServerKey = "a03c383cf63c3c4efe67acc52112a6dd734b3a946b9545f488aaa93da7991238"
	testNowMs     = int64(1_700_000_000_000)
)

type recordedDownload struct {
	threadID      string
	interactionID int64
	attachmentID  string
}

type fakeJobs struct {
	mu           sync.Mutex
	downloads    []recordedDownload
	disappearing int
}

func (f *fakeJobs) EnqueueAttachmentDownload(_ context.Context, threadID string, interactionID int64, attachmentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, recordedDownload{threadID, interactionID, attachmentID})
}

func (f *fakeJobs) UpsertDisappearingMessages(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disappearing++
}

type fakeNotifier struct {
	mu        sync.Mutex
	messages  []Notification
	reactions []Notification
}

func (f *fakeNotifier) NotifyUser(_ context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, n)
}

func (f *fakeNotifier) NotifyReaction(_ context.Context, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, n)
}

type fakeConfigSink struct {
	mu           sync.Mutex
	merged       []*ConfigMessage
	keyRequested []string
}

func (f *fakeConfigSink) MergeConfig(_ context.Context, msg *ConfigMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, msg)
	return nil
}

func (f *fakeConfigSink) RequestGroupKeys(_ context.Context, groupID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyRequested = append(f.keyRequested, groupID)
}

// spyStore counts visibility writes made through the Store interface.
type spyStore struct {
	*database.Tx
	visibleWrites *int
}

func (s spyStore) MarkThreadVisible(id string) (bool, error) {
	*s.visibleWrites++
	return s.Tx.MarkThreadVisible(id)
}

type testEnv struct {
	db       *database.Database
	cache    *configcache.State
	me       *crypto.Engine
	jobs     *fakeJobs
	notifier *fakeNotifier
	sink     *fakeConfigSink
	receiver *Receiver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	env := &testEnv{
		db:       db,
		cache:    configcache.NewState(),
		me:       newEngine(t),
		jobs:     &fakeJobs{},
		notifier: &fakeNotifier{},
		sink:     &fakeConfigSink{},
	}
	env.receiver = New(Dependencies{
		UserSessionID: env.me.Keys().SessionID(),
		Crypto:        env.me,
		Config:        env.cache,
		ConfigMutator: env.cache,
		Jobs:          env.jobs,
		Notifier:      env.notifier,
		ConfigSink:    env.sink,
		Logger:        logger,
		Now:           func() time.Time { return time.UnixMilli(testNowMs) },
	})
	return env
}

func newEngine(t *testing.T) *crypto.Engine {
	t.Helper()
	keys, err := crypto.GenerateUserKeys()
	require.NoError(t, err)
	return crypto.NewEngine(keys)
}

func (e *testEnv) myID() string {
	return e.me.Keys().SessionID()
}

// sessionDelivery encrypts content from sender to recipient the way a
// default-namespace swarm message arrives.
func sessionDelivery(t *testing.T, sender *crypto.Engine, recipient string, sentMs int64, c *protocol.Content) []byte {
	t.Helper()
	ciphertext, err := sender.EncryptSession(protocol.Pad(protocol.EncodeContent(c)), recipient)
	require.NoError(t, err)
	return protocol.WrapWebSocketEnvelope(&protocol.Envelope{
		Type:        protocol.EnvelopeSessionMessage,
		Source:      sender.Keys().SessionID(),
		TimestampMs: uint64(sentMs),
		Content:     ciphertext,
	}, 1)
}

func swarmOrigin(namespace models.Namespace, publicKey, hash string) models.Origin {
	return models.NewSwarmOrigin(models.SwarmOrigin{
		PublicKey:         publicKey,
		Namespace:         namespace,
		ServerHash:        hash,
		ServerTimestampMs: testNowMs,
	})
}

// testGroup is a group whose identity key the test controls.
type testGroup struct {
	id   string
	priv ed25519.PrivateKey
	key  []byte
}

func newTestGroup(t *testing.T, e *testEnv) *testGroup {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = byte(len(t.Name()))
	copy(seed[1:], t.Name())
	id, err := crypto.GroupIDFromSeed(seed)
	require.NoError(t, err)
	g := &testGroup{id: id, priv: ed25519.NewKeyFromSeed(seed), key: append(make([]byte, 31), 9)}
	e.cache.SetGroup(id, configcache.Group{Keys: [][]byte{g.key}})
	return g
}

func (g *testGroup) sign(payload []byte) []byte {
	return ed25519.Sign(g.priv, payload)
}

// write runs fn in one write transaction and returns its error.
func (e *testEnv) write(t *testing.T, fn func(tx *database.Tx) error) error {
	t.Helper()
	return e.db.Write(context.Background(), fn)
}

// handle runs Handle and PostHandle for a message built in the test.
func (e *testEnv) handle(t *testing.T, threadID string, variant models.ThreadVariant, msg protocol.Message) (*models.InsertedInteractionInfo, error) {
	t.Helper()
	var info *models.InsertedInteractionInfo
	err := e.write(t, func(tx *database.Tx) error {
		var err error
		info, err = e.receiver.Handle(context.Background(), tx, threadID, variant, msg, 0, nil, HandleOptions{})
		if err != nil {
			return err
		}
		return e.receiver.PostHandle(context.Background(), tx, threadID, variant, msg, info)
	})
	return info, err
}

// receive parses data and processes it in one write transaction, recording
// the unique identifier the way ingest does.
func (e *testEnv) receive(t *testing.T, data []byte, origin models.Origin) (*models.InsertedInteractionInfo, error) {
	t.Helper()
	processed, err := e.receiver.Parse(context.Background(), data, origin)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, processed.Standard)
	var info *models.InsertedInteractionInfo
	err = e.write(t, func(tx *database.Tx) error {
		var err error
		info, err = e.receiver.Process(context.Background(), tx, processed.Standard, HandleOptions{})
		return err
	})
	return info, err
}

func (e *testEnv) thread(t *testing.T, id string) *models.Thread {
	t.Helper()
	var th *models.Thread
	require.NoError(t, e.db.Read(context.Background(), func(tx *database.Tx) error {
		var err error
		th, err = tx.FetchThread(id)
		return err
	}))
	return th
}

func (e *testEnv) interactions(t *testing.T, threadID string) []models.Interaction {
	t.Helper()
	var out []models.Interaction
	require.NoError(t, e.db.Read(context.Background(), func(tx *database.Tx) error {
		var err error
		out, err = tx.ListInteractions(threadID, 100)
		return err
	}))
	return out
}

func (e *testEnv) seedThread(t *testing.T, th models.Thread) {
	t.Helper()
	require.NoError(t, e.write(t, func(tx *database.Tx) error {
		_, err := tx.CreateThreadIfMissing(th)
		return err
	}))
}

func sessionID(b byte) string {
	return "05" + strings.Repeat(string("0123456789abcdef"[b%16]), 64)
}

func configVisible(lastReadMs int64) configcache.Conversation {
	return configcache.Conversation{Visible: true, LastReadMs: lastReadMs}
}
