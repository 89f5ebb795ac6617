package exec

import (
	"bytes"
	"encoding/gob"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/polypheny/polypheny-go/session"
)

// Package exec's remote Exchange moves row batches between two executor
// threads that sit in different OS processes, the case localExchange
// cannot cover (§4.2 Exchange "the wire transport... used to move rows
// between two executor threads that sit in different processes").
//
// A row's column types are only known once a query is planned, so there
// is no fixed .proto schema to generate a message from the way
// RequestCertificate/StreamEvents-style fixed-shape RPCs in a control
// plane would have. Each batch is instead gob-encoded into a
// wrapperspb.BytesValue, the wrapper message google.golang.org/protobuf
// ships for exactly this "opaque payload over a typed RPC" shape, and
// carried over a hand-described grpc.StreamDesc/grpc.ServiceDesc
// (the same mechanism protoc-gen-go-grpc emits into a _grpc.pb.go file;
// here there is no fixed exchangepb.proto to run protoc against, so the
// descriptor is written directly against google.golang.org/grpc's public
// API instead).

func init() {
	// gob requires every concrete type that will ever occupy a Row's
	// interface{} slots to be registered up front (encoding/gob).
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
}

const exchangeServiceName = "polypheny.exec.Exchange"
const exchangeSendMethod = "/" + exchangeServiceName + "/Send"

// exchangeServiceDesc describes one client-streaming RPC: the producer
// sends a BytesValue per batch and closes the stream; the consumer
// replies once, after it has drained every batch, with an empty
// BytesValue acknowledgement.
var exchangeServiceDesc = grpc.ServiceDesc{
	ServiceName: exchangeServiceName,
	HandlerType: (*remoteExchangeServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Send",
			Handler:       exchangeSendHandler,
			ClientStreams: true,
		},
	},
}

// remoteExchangeServer is the consumer side: it runs inside the process
// that will feed the received rows into its own plan fragment.
type remoteExchangeServer struct {
	sink chan<- Row
}

func exchangeSendHandler(srv interface{}, stream grpc.ServerStream) error {
	s := srv.(*remoteExchangeServer)
	for {
		var batch wrapperspb.BytesValue
		if err := stream.RecvMsg(&batch); err != nil {
			if err == io.EOF {
				close(s.sink)
				return stream.SendMsg(&wrapperspb.BytesValue{})
			}
			return err
		}
		rows, err := decodeBatch(batch.Value)
		if err != nil {
			return err
		}
		for _, row := range rows {
			s.sink <- row
		}
	}
}

// RemoteExchangeReceiver runs a grpc.Server handler that decodes an
// incoming batch stream into rows consumable through an Iterator, for
// the executor process that is the downstream side of a cross-process
// Exchange.
type RemoteExchangeReceiver struct {
	server *grpc.Server
	rows   chan Row
}

// NewRemoteExchangeReceiver registers the Exchange service on server;
// server.Serve still has to be called by the caller's listener loop.
func NewRemoteExchangeReceiver(server *grpc.Server) *RemoteExchangeReceiver {
	rows := make(chan Row, exchangeBatchSize)
	server.RegisterService(&exchangeServiceDesc, &remoteExchangeServer{sink: rows})
	return &RemoteExchangeReceiver{server: server, rows: rows}
}

// Iterator exposes the receiver as a plain exec.Iterator once registered.
func (r *RemoteExchangeReceiver) Iterator() Iterator {
	return &remoteExchangeIter{rows: r.rows}
}

type remoteExchangeIter struct {
	rows chan Row
}

func (it *remoteExchangeIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	row, ok := <-it.rows
	return row, ok, nil
}

func (it *remoteExchangeIter) Close(ctx *session.Context) error { return nil }

// SendRemoteExchange is the producer side: it drains child in batches
// and streams them to a RemoteExchangeReceiver over conn.
func SendRemoteExchange(ctx *session.Context, conn *grpc.ClientConn, child Iterator) error {
	stream, err := conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "Send", ClientStreams: true}, exchangeSendMethod)
	if err != nil {
		return err
	}
	for {
		batch, more, err := Fetch(ctx, child, exchangeBatchSize)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			data, err := encodeBatch(batch)
			if err != nil {
				return err
			}
			if err := stream.SendMsg(&wrapperspb.BytesValue{Value: data}); err != nil {
				return err
			}
		}
		if !more {
			break
		}
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	var ack wrapperspb.BytesValue
	return stream.RecvMsg(&ack)
}

func encodeBatch(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	plain := make([][]interface{}, len(rows))
	for i, r := range rows {
		plain[i] = []interface{}(r)
	}
	if err := enc.Encode(plain); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBatch(data []byte) ([]Row, error) {
	var plain [][]interface{}
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&plain); err != nil {
		return nil, err
	}
	rows := make([]Row, len(plain))
	for i, p := range plain {
		rows[i] = Row(p)
	}
	return rows, nil
}
