// Package simnet is an in-process ledger network: gateways that precheck and
// apply transactions, a receipt store and a mirror that streams topic
// messages. Tests script its failure modes; cmd/ledger-sim serves it over TCP.
package simnet

import (
	"crypto/sha512"
	"encoding/binary"
	"sync"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"github.com/R3E-Network/hiero_client/pkg/logger"
)

// DefaultTransactionFee is the fee charged per transaction.
const DefaultTransactionFee uint64 = 100_000

// RunningHashVersion is the topic running hash scheme in use.
const RunningHashVersion = 3

// Account is a snapshot of an account.
type Account struct {
	ID      wire.EntityID
	Key     wire.PublicKey
	Balance int64
}

// Topic is a snapshot of a topic.
type Topic struct {
	ID             wire.EntityID
	Memo           string
	AdminKey       *wire.PublicKey
	SubmitKey      *wire.PublicKey
	SequenceNumber uint64
	RunningHash    []byte
}

// Schedule is a snapshot of a schedule.
type Schedule struct {
	ID                     wire.EntityID
	ScheduledTransactionID wire.TransactionID
	Kind                   string
	Executed               bool
}

type topicState struct {
	Topic
	messages []*wire.TopicMessage
}

type receiptState struct {
	receipt wire.Receipt
	// polls answered with UNKNOWN before the receipt is revealed.
	delay int
}

// Network holds ledger state shared by every gateway and mirror.
type Network struct {
	mu sync.Mutex

	log      *logger.Logger
	now      func() time.Time
	fee      uint64
	delay    int
	nextNum  int64
	accounts map[wire.EntityID]*Account
	topics   map[wire.EntityID]*topicState
	kinds    map[wire.EntityID]string
	receipts map[wire.TransactionID]*receiptState
	schedule map[wire.EntityID]*Schedule
	changed  chan struct{}
}

// Option configures a Network.
type Option func(*Network)

// WithClock replaces time.Now for consensus timestamps and validity checks.
func WithClock(now func() time.Time) Option {
	return func(n *Network) { n.now = now }
}

// WithLogger sets the network logger.
func WithLogger(l *logger.Logger) Option {
	return func(n *Network) { n.log = l }
}

// WithTransactionFee sets the fee charged per transaction.
func WithTransactionFee(fee uint64) Option {
	return func(n *Network) { n.fee = fee }
}

// WithReceiptDelay makes every new receipt answer UNKNOWN for polls queries first.
func WithReceiptDelay(polls int) Option {
	return func(n *Network) { n.delay = polls }
}

// New creates an empty network. Entity numbers start at 1001.
func New(opts ...Option) *Network {
	n := &Network{
		now:      time.Now,
		fee:      DefaultTransactionFee,
		nextNum:  1001,
		accounts: make(map[wire.EntityID]*Account),
		topics:   make(map[wire.EntityID]*topicState),
		kinds:    make(map[wire.EntityID]string),
		receipts: make(map[wire.TransactionID]*receiptState),
		schedule: make(map[wire.EntityID]*Schedule),
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.log == nil {
		n.log = logger.NewNop()
	}
	return n
}

// SetReceiptDelay changes the delay applied to receipts created from now on.
func (n *Network) SetReceiptDelay(polls int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delay = polls
}

// Fee returns the fee charged per transaction.
func (n *Network) Fee() uint64 { return n.fee }

// CreateAccount creates a funded account outside of consensus (genesis).
func (n *Network) CreateAccount(key wire.PublicKey, balance int64) wire.EntityID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.createAccountLocked(key, balance)
}

func (n *Network) createAccountLocked(key wire.PublicKey, balance int64) wire.EntityID {
	id := n.allocLocked("account")
	n.accounts[id] = &Account{ID: id, Key: key, Balance: balance}
	return id
}

func (n *Network) allocLocked(kind string) wire.EntityID {
	id := wire.NewEntityID(0, 0, n.nextNum)
	n.nextNum++
	n.kinds[id] = kind
	return id
}

// Stats counts the entities and transactions held by a network.
type Stats struct {
	Accounts     int `json:"accounts"`
	Topics       int `json:"topics"`
	Schedules    int `json:"schedules"`
	Messages     int `json:"messages"`
	Transactions int `json:"transactions"`
}

// Stats returns current counts.
func (n *Network) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := Stats{
		Accounts:     len(n.accounts),
		Topics:       len(n.topics),
		Schedules:    len(n.schedule),
		Transactions: len(n.receipts),
	}
	for _, t := range n.topics {
		st.Messages += len(t.messages)
	}
	return st
}

// Account returns a snapshot of id.
func (n *Network) Account(id wire.EntityID) (Account, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a, ok := n.accounts[id]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Topic returns a snapshot of id.
func (n *Network) Topic(id wire.EntityID) (Topic, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.topics[id]
	if !ok {
		return Topic{}, false
	}
	return t.Topic, true
}

// Schedule returns a snapshot of id.
func (n *Network) Schedule(id wire.EntityID) (Schedule, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := n.schedule[id]
	if !ok {
		return Schedule{}, false
	}
	return *s, true
}

// Messages returns the messages of topic in sequence order.
func (n *Network) Messages(topic wire.EntityID) []*wire.TopicMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.topics[topic]
	if !ok {
		return nil
	}
	return append([]*wire.TopicMessage(nil), t.messages...)
}

// Receipt returns the stored receipt of id, ignoring any delay.
func (n *Network) Receipt(id wire.TransactionID) (wire.Receipt, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.receipts[id]
	if !ok {
		return wire.Receipt{}, false
	}
	return r.receipt, true
}

// =============================================================================
// Submission
// =============================================================================

// Submit prechecks tx and, when accepted, applies it and stores its receipt.
func (n *Network) Submit(tx *wire.Transaction) wire.TransactionResponse {
	body, err := tx.Body()
	if err != nil {
		return wire.TransactionResponse{Code: wire.InvalidTransaction}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if code := n.precheckLocked(body, tx); code != wire.OK {
		resp := wire.TransactionResponse{Code: code}
		if code == wire.InsufficientTxFee {
			resp.Cost = n.fee
		}
		return resp
	}

	n.accounts[body.TransactionID.Payer].Balance -= int64(n.fee)
	signed := func(k wire.PublicKey) bool { return tx.Signatures.SignedBy(k, tx.BodyBytes) }
	receipt := n.executeLocked(body.TransactionID, body.Kind, body.Data, signed)
	n.receipts[body.TransactionID] = &receiptState{receipt: receipt, delay: n.delay}

	n.log.WithFields(map[string]interface{}{
		"transaction_id": body.TransactionID.String(),
		"kind":           body.Kind,
		"status":         receipt.Status.String(),
	}).Debug("transaction applied")
	return wire.TransactionResponse{Code: wire.OK}
}

func (n *Network) precheckLocked(body *wire.TransactionBody, tx *wire.Transaction) wire.ResponseCode {
	id := body.TransactionID
	if id.Scheduled {
		return wire.InvalidTransactionID
	}
	if _, dup := n.receipts[id]; dup {
		return wire.DuplicateTransaction
	}
	payer, ok := n.accounts[id.Payer]
	if !ok {
		return wire.PayerAccountNotFound
	}
	if body.ValidDuration <= 0 || body.ValidDuration > 180 {
		return wire.InvalidTransactionDuration
	}
	now := n.now()
	start := id.ValidStart.Time()
	if start.After(now.Add(10 * time.Second)) {
		return wire.InvalidTransactionStart
	}
	if now.After(start.Add(time.Duration(body.ValidDuration) * time.Second)) {
		return wire.TransactionExpired
	}
	if len(body.Memo) > 100 {
		return wire.MemoTooLong
	}
	if body.MaxFee < n.fee {
		return wire.InsufficientTxFee
	}
	if payer.Balance < int64(n.fee) {
		return wire.InsufficientPayerBalance
	}
	if !tx.Signatures.SignedBy(payer.Key, tx.BodyBytes) {
		return wire.InvalidSignature
	}
	return wire.OK
}

// executeLocked applies one operation and returns its receipt.
func (n *Network) executeLocked(id wire.TransactionID, kind string, data []byte, signed func(wire.PublicKey) bool) wire.Receipt {
	switch kind {
	case wire.KindCryptoTransfer:
		var op wire.CryptoTransferBody
		if err := wire.Unmarshal(data, &op); err != nil {
			return wire.Receipt{Status: wire.BadEncoding}
		}
		return n.transferLocked(op, signed)
	case wire.KindCryptoCreate:
		var op wire.CryptoCreateBody
		if err := wire.Unmarshal(data, &op); err != nil {
			return wire.Receipt{Status: wire.BadEncoding}
		}
		payer := n.accounts[id.Payer]
		if op.Key.IsZero() {
			return wire.Receipt{Status: wire.KeyRequired}
		}
		if payer.Balance < int64(op.InitialBalance) {
			return wire.Receipt{Status: wire.InsufficientPayerBalance}
		}
		payer.Balance -= int64(op.InitialBalance)
		acct := n.createAccountLocked(op.Key, int64(op.InitialBalance))
		return wire.Receipt{Status: wire.Success, AccountID: &acct}
	case wire.KindCryptoUpdate:
		var op wire.CryptoUpdateKeyBody
		if err := wire.Unmarshal(data, &op); err != nil {
			return wire.Receipt{Status: wire.BadEncoding}
		}
		acct, ok := n.accounts[op.Account]
		if !ok {
			return wire.Receipt{Status: wire.InvalidAccountID}
		}
		if !signed(acct.Key) || !signed(op.NewKey) {
			return wire.Receipt{Status: wire.InvalidSignature}
		}
		acct.Key = op.NewKey
		return wire.Receipt{Status: wire.Success}
	case wire.KindTopicCreate:
		var op wire.TopicCreateBody
		if err := wire.Unmarshal(data, &op); err != nil {
			return wire.Receipt{Status: wire.BadEncoding}
		}
		if op.AdminKey != nil && !signed(*op.AdminKey) {
			return wire.Receipt{Status: wire.InvalidSignature}
		}
		topic := n.allocLocked("topic")
		n.topics[topic] = &topicState{Topic: Topic{
			ID:          topic,
			Memo:        op.Memo,
			AdminKey:    op.AdminKey,
			SubmitKey:   op.SubmitKey,
			RunningHash: make([]byte, sha512.Size384),
		}}
		return wire.Receipt{Status: wire.Success, TopicID: &topic}
	case wire.KindTopicMessage:
		var op wire.TopicMessageBody
		if err := wire.Unmarshal(data, &op); err != nil {
			return wire.Receipt{Status: wire.BadEncoding}
		}
		return n.submitMessageLocked(id, op, signed)
	case wire.KindScheduleCreate:
		var op wire.ScheduleCreateBody
		if err := wire.Unmarshal(data, &op); err != nil {
			return wire.Receipt{Status: wire.BadEncoding}
		}
		return n.scheduleLocked(id, op, signed)
	}
	return wire.Receipt{Status: wire.NotSupported}
}

func (n *Network) transferLocked(op wire.CryptoTransferBody, signed func(wire.PublicKey) bool) wire.Receipt {
	if len(op.Transfers) == 0 {
		return wire.Receipt{Status: wire.InvalidAccountAmounts}
	}
	var sum int64
	seen := make(map[wire.EntityID]bool, len(op.Transfers))
	for _, t := range op.Transfers {
		if seen[t.Account] {
			return wire.Receipt{Status: wire.AccountRepeatedInAccountAmounts}
		}
		seen[t.Account] = true
		acct, ok := n.accounts[t.Account]
		if !ok {
			return wire.Receipt{Status: wire.InvalidAccountID}
		}
		if t.Amount < 0 {
			if !signed(acct.Key) {
				return wire.Receipt{Status: wire.InvalidSignature}
			}
			if acct.Balance < -t.Amount {
				return wire.Receipt{Status: wire.InsufficientAccountBalance}
			}
		}
		sum += t.Amount
	}
	if sum != 0 {
		return wire.Receipt{Status: wire.InvalidAccountAmounts}
	}
	for _, t := range op.Transfers {
		n.accounts[t.Account].Balance += t.Amount
	}
	return wire.Receipt{Status: wire.Success}
}

func (n *Network) submitMessageLocked(id wire.TransactionID, op wire.TopicMessageBody, signed func(wire.PublicKey) bool) wire.Receipt {
	topic, ok := n.topics[op.Topic]
	if !ok {
		return wire.Receipt{Status: wire.InvalidTopicID}
	}
	if len(op.Message) == 0 {
		return wire.Receipt{Status: wire.InvalidTopicMessage}
	}
	if topic.SubmitKey != nil && !signed(*topic.SubmitKey) {
		return wire.Receipt{Status: wire.InvalidSignature}
	}
	if c := op.Chunk; c != nil {
		if c.Number < 1 || c.Number > c.Total {
			return wire.Receipt{Status: wire.InvalidChunkNumber}
		}
		if c.InitialTransactionID.Payer != id.Payer {
			return wire.Receipt{Status: wire.InvalidChunkTransactionID}
		}
		if c.Number == 1 && !c.InitialTransactionID.Equal(id) {
			return wire.Receipt{Status: wire.InvalidChunkTransactionID}
		}
	}

	ts := wire.TimestampFromTime(n.now())
	if last := len(topic.messages); last > 0 {
		prev := topic.messages[last-1].ConsensusTimestamp
		if !prev.Before(ts) {
			ts = prev.Add(time.Nanosecond)
		}
	}
	topic.SequenceNumber++
	topic.RunningHash = runningHash(topic.RunningHash, op.Topic, topic.SequenceNumber, ts, op.Message)

	msg := &wire.TopicMessage{
		ConsensusTimestamp: ts,
		Message:            append([]byte(nil), op.Message...),
		RunningHash:        append([]byte(nil), topic.RunningHash...),
		RunningHashVersion: RunningHashVersion,
		SequenceNumber:     topic.SequenceNumber,
		Chunk:              op.Chunk,
	}
	topic.messages = append(topic.messages, msg)
	n.notifyLocked()

	return wire.Receipt{
		Status:                  wire.Success,
		TopicSequenceNumber:     topic.SequenceNumber,
		TopicRunningHash:        msg.RunningHash,
		TopicRunningHashVersion: RunningHashVersion,
	}
}

func (n *Network) scheduleLocked(id wire.TransactionID, op wire.ScheduleCreateBody, signed func(wire.PublicKey) bool) wire.Receipt {
	if op.Kind == wire.KindScheduleCreate {
		return wire.Receipt{Status: wire.InvalidTransaction}
	}
	if op.Administrator != nil && !signed(*op.Administrator) {
		return wire.Receipt{Status: wire.InvalidSignature}
	}

	scheduledID := id.AsScheduled()
	sid := n.allocLocked("schedule")
	sched := &Schedule{ID: sid, ScheduledTransactionID: scheduledID, Kind: op.Kind}
	n.schedule[sid] = sched

	if !op.WaitForExpiry {
		// Signatures on the create transaction count toward the inner one.
		inner := n.executeLocked(scheduledID, op.Kind, op.Data, signed)
		n.receipts[scheduledID] = &receiptState{receipt: inner}
		sched.Executed = true
	}

	return wire.Receipt{Status: wire.Success, ScheduleID: &sid, ScheduledTransactionID: &scheduledID}
}

// receiptFor answers a receipt query, consuming one unit of delay.
func (n *Network) receiptFor(id wire.TransactionID) wire.ReceiptResponse {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.receipts[id]
	if !ok {
		return wire.ReceiptResponse{Code: wire.ReceiptNotFound}
	}
	if r.delay > 0 {
		r.delay--
		return wire.ReceiptResponse{Code: wire.OK, Receipt: &wire.Receipt{Status: wire.Unknown}}
	}
	receipt := r.receipt
	return wire.ReceiptResponse{Code: wire.OK, Receipt: &receipt}
}

// kindOf reports what entity id names, "" if nothing.
func (n *Network) kindOf(id wire.EntityID) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.kinds[id]
}

// notifyLocked wakes every subscriber waiting for new messages.
func (n *Network) notifyLocked() {
	close(n.changed)
	n.changed = make(chan struct{})
}

// messagesSince returns messages of topic from index from onward and a
// channel closed on the next change.
func (n *Network) messagesSince(topic wire.EntityID, from int) ([]*wire.TopicMessage, <-chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.topics[topic]
	if !ok || from >= len(t.messages) {
		return nil, n.changed
	}
	return append([]*wire.TopicMessage(nil), t.messages[from:]...), n.changed
}

func runningHash(prev []byte, topic wire.EntityID, seq uint64, ts wire.Timestamp, message []byte) []byte {
	msgHash := sha512.Sum384(message)
	h := sha512.New384()
	var buf [8]byte
	h.Write(prev)
	for _, v := range []int64{RunningHashVersion, topic.Shard, topic.Realm, topic.Num, ts.Seconds, int64(ts.Nanos), int64(seq)} {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	h.Write(msgHash[:])
	return h.Sum(nil)
}
