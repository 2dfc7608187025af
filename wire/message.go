// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package wire defines the closed set of messages two endpoints exchange and
// their binary encoding.
//
// Every frame starts with a fixed prologue
//
//	[version:1][funcId:1][xid:2]
//
// followed by a body whose layout depends on the function id. Frames carry no
// length, so a reader that fails in the middle of a body cannot find the
// next frame on a stream.
package wire

import "strconv"

// Version is written into every frame. Readers do not interpret it.
const Version = 1

// FuncID identifies the kind of a message.
type FuncID uint8

// Function ids of the message kinds.
const (
	FuncLease               FuncID = 1
	FuncRequestBundle       FuncID = 2
	FuncDeliverBundles      FuncID = 4
	FuncFetchService        FuncID = 5
	FuncDeliverService      FuncID = 6
	FuncInvokeMethod        FuncID = 7
	FuncMethodResult        FuncID = 8
	FuncRemoteEvent         FuncID = 9
	FuncTimeOffset          FuncID = 10
	FuncLeaseUpdate         FuncID = 11
	FuncStreamRequest       FuncID = 12
	FuncStreamResult        FuncID = 13
	FuncRequestDependencies FuncID = 14
)

var _funcNames = map[FuncID]string{
	FuncLease:               "Lease",
	FuncRequestBundle:       "RequestBundle",
	FuncDeliverBundles:      "DeliverBundles",
	FuncFetchService:        "FetchService",
	FuncDeliverService:      "DeliverService",
	FuncInvokeMethod:        "InvokeMethod",
	FuncMethodResult:        "MethodResult",
	FuncRemoteEvent:         "RemoteEvent",
	FuncTimeOffset:          "TimeOffset",
	FuncLeaseUpdate:         "LeaseUpdate",
	FuncStreamRequest:       "StreamRequest",
	FuncStreamResult:        "StreamResult",
	FuncRequestDependencies: "RequestDependencies",
}

func (f FuncID) String() string {
	if name, ok := _funcNames[f]; ok {
		return name
	}
	return "FuncID(" + strconv.Itoa(int(f)) + ")"
}

// Message is one of the message kinds defined in this package.
type Message interface {
	FuncID() FuncID

	// XID is the transaction id correlating a request with its reply. Zero
	// means the sender assigns one on send.
	XID() uint16
	SetXID(uint16)

	encode(*encoder) error
	decode(*decoder) error
}

// Header carries the transaction id shared by all messages.
type Header struct {
	xid uint16
}

// XID returns the transaction id.
func (h *Header) XID() uint16 { return h.xid }

// SetXID sets the transaction id.
func (h *Header) SetXID(xid uint16) { h.xid = xid }

// NewHeader returns a Header with the given transaction id.
func NewHeader(xid uint16) Header { return Header{xid: xid} }

// LeasedCapability describes one capability offered in a Lease.
type LeasedCapability struct {
	ID         string
	Interfaces []string
	Properties map[string]interface{}
}

// Lease announces the capabilities a side offers and the topics it wants
// events for. Both sides send one when a connection is established.
type Lease struct {
	Header

	Capabilities []LeasedCapability
	Topics       []string
}

// FuncID implements Message.
func (*Lease) FuncID() FuncID { return FuncLease }

// RequestBundle asks the peer for the bundle that provides a capability.
type RequestBundle struct {
	Header

	ServiceID string
}

// FuncID implements Message.
func (*RequestBundle) FuncID() FuncID { return FuncRequestBundle }

// Bundle is an opaque named payload.
type Bundle struct {
	Name string
	Data []byte
}

// DeliverBundles answers RequestBundle and RequestDependencies.
type DeliverBundles struct {
	Header

	Bundles []Bundle
}

// FuncID implements Message.
func (*DeliverBundles) FuncID() FuncID { return FuncDeliverBundles }

// FetchService asks the peer to describe a capability.
type FetchService struct {
	Header

	ServiceID string
}

// FuncID implements Message.
func (*FetchService) FuncID() FuncID { return FuncFetchService }

// DeliverService describes a capability in answer to FetchService.
type DeliverService struct {
	Header

	ServiceID  string
	Interfaces []string
	SmartProxy string
	Imports    []string
	Exports    []string
	// Injections are extra named payloads. They are written in name order.
	Injections map[string][]byte
}

// FuncID implements Message.
func (*DeliverService) FuncID() FuncID { return FuncDeliverService }

// InvokeMethod calls an operation on a capability.
type InvokeMethod struct {
	Header

	ServiceID string
	Signature string
	Args      []interface{}
}

// FuncID implements Message.
func (*InvokeMethod) FuncID() FuncID { return FuncInvokeMethod }

// MethodResult answers InvokeMethod with either a result or an error.
type MethodResult struct {
	Header

	Result interface{}
	Err    error
}

// FuncID implements Message.
func (*MethodResult) FuncID() FuncID { return FuncMethodResult }

// RemoteEvent delivers an event to a peer interested in its topic.
type RemoteEvent struct {
	Header

	Topic      string
	Properties map[string]interface{}
}

// FuncID implements Message.
func (*RemoteEvent) FuncID() FuncID { return FuncRemoteEvent }

// TimeOffset carries a series of timestamps, in Unix nanoseconds, that both
// sides append to in turn.
type TimeOffset struct {
	Header

	Timestamps []int64
}

// FuncID implements Message.
func (*TimeOffset) FuncID() FuncID { return FuncTimeOffset }

// Restamp prepares the message for retransmission: it takes a new
// transaction id and replaces the newest timestamp with now.
func (m *TimeOffset) Restamp(xid uint16, now int64) {
	m.SetXID(xid)
	if n := len(m.Timestamps); n > 0 {
		m.Timestamps[n-1] = now
	} else {
		m.Timestamps = append(m.Timestamps, now)
	}
}

// UpdateType is the kind of change a LeaseUpdate reports.
type UpdateType uint8

// Lease update kinds.
const (
	UpdateTopics   UpdateType = 0
	UpdateAdded    UpdateType = 1
	UpdateModified UpdateType = 2
	UpdateRemoved  UpdateType = 3
)

func (t UpdateType) String() string {
	switch t {
	case UpdateTopics:
		return "topics"
	case UpdateAdded:
		return "added"
	case UpdateModified:
		return "modified"
	case UpdateRemoved:
		return "removed"
	}
	return "UpdateType(" + strconv.Itoa(int(t)) + ")"
}

// LeaseUpdate reports an incremental change to a Lease. Which fields are
// used depends on Type: UpdateTopics uses TopicsAdded and TopicsRemoved,
// UpdateAdded and UpdateModified use Interfaces and Properties, UpdateRemoved
// uses neither.
type LeaseUpdate struct {
	Header

	ServiceID string
	Type      UpdateType

	Interfaces []string
	Properties map[string]interface{}

	TopicsAdded   []string
	TopicsRemoved []string
}

// FuncID implements Message.
func (*LeaseUpdate) FuncID() FuncID { return FuncLeaseUpdate }

// StreamOp is an operation on a proxied stream.
type StreamOp uint8

// Stream operations.
const (
	StreamRead       StreamOp = 0
	StreamReadArray  StreamOp = 1
	StreamWrite      StreamOp = 2
	StreamWriteArray StreamOp = 3
	StreamClose      StreamOp = 4
)

func (op StreamOp) String() string {
	switch op {
	case StreamRead:
		return "read"
	case StreamReadArray:
		return "read-array"
	case StreamWrite:
		return "write"
	case StreamWriteArray:
		return "write-array"
	case StreamClose:
		return "close"
	}
	return "StreamOp(" + strconv.Itoa(int(op)) + ")"
}

// StreamRequest drives a stream that lives on the peer.
type StreamRequest struct {
	Header

	StreamID uint16
	Op       StreamOp

	// Length is the most bytes a StreamReadArray may return.
	Length uint32
	// Byte is the byte written by StreamWrite.
	Byte byte
	// Data holds the bytes written by StreamWriteArray.
	Data []byte
}

// FuncID implements Message.
func (*StreamRequest) FuncID() FuncID { return FuncStreamRequest }

// Markers a StreamResult uses in place of data.
const (
	ResultEOF       int16 = -1
	ResultWriteOK   int16 = -2
	ResultException int16 = -3
)

// StreamResult answers a StreamRequest. A non-negative Result is the byte
// read by StreamRead; StreamReadArray returns its bytes in Data.
type StreamResult struct {
	Header

	Result int16
	Data   []byte
	Err    error
}

// FuncID implements Message.
func (*StreamResult) FuncID() FuncID { return FuncStreamResult }

// RequestDependencies asks the peer for bundles exporting the packages.
type RequestDependencies struct {
	Header

	Packages []string
}

// FuncID implements Message.
func (*RequestDependencies) FuncID() FuncID { return FuncRequestDependencies }

func newMessage(f FuncID) Message {
	switch f {
	case FuncLease:
		return &Lease{}
	case FuncRequestBundle:
		return &RequestBundle{}
	case FuncDeliverBundles:
		return &DeliverBundles{}
	case FuncFetchService:
		return &FetchService{}
	case FuncDeliverService:
		return &DeliverService{}
	case FuncInvokeMethod:
		return &InvokeMethod{}
	case FuncMethodResult:
		return &MethodResult{}
	case FuncRemoteEvent:
		return &RemoteEvent{}
	case FuncTimeOffset:
		return &TimeOffset{}
	case FuncLeaseUpdate:
		return &LeaseUpdate{}
	case FuncStreamRequest:
		return &StreamRequest{}
	case FuncStreamResult:
		return &StreamResult{}
	case FuncRequestDependencies:
		return &RequestDependencies{}
	}
	return nil
}
