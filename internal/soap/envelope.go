package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

const (
	// EnvelopeNamespace is the SOAP 1.1 envelope namespace.
	EnvelopeNamespace = "http://schemas.xmlsoap.org/soap/envelope/"

	// MetadataNamespace is the namespace of Metadata API payloads.
	MetadataNamespace = "http://soap.sforce.com/2006/04/metadata"
)

// Envelope is a SOAP 1.1 envelope.
//
// The body content is kept as raw XML so one type serves requests,
// responses and faults in both directions.
type Envelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Header  *Header  `xml:"http://schemas.xmlsoap.org/soap/envelope/ Header,omitempty"`
	Body    Body     `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

// Header carries the session used to authorize a call.
type Header struct {
	Session *SessionHeader `xml:"http://soap.sforce.com/2006/04/metadata SessionHeader,omitempty"`
}

// SessionHeader holds an already established session id.
type SessionHeader struct {
	SessionID string `xml:"sessionId"`
}

// Body is the SOAP body. Fault is set when the server rejected the call.
type Body struct {
	Fault   *Fault `xml:"http://schemas.xmlsoap.org/soap/envelope/ Fault,omitempty"`
	Content []byte `xml:",innerxml"`
}

// Fault is a SOAP fault returned by the server.
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.String)
}

// EncodeEnvelope marshals content into an envelope carrying header.
func EncodeEnvelope(header *Header, content any) ([]byte, error) {
	inner, err := xml.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	return encode(Envelope{Header: header, Body: Body{Content: inner}})
}

// EncodeFault marshals f into an envelope.
func EncodeFault(f Fault) ([]byte, error) {
	return encode(Envelope{Body: Body{Fault: &f}})
}

func encode(env Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeEnvelope parses a SOAP envelope. A fault in the body is not an
// error at this level; callers inspect [Body.Fault].
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return &env, nil
}

// Name returns the name of the first element in the body.
func (b Body) Name() (xml.Name, error) {
	dec := xml.NewDecoder(bytes.NewReader(b.Content))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return xml.Name{}, errors.New("empty body")
		}
		if err != nil {
			return xml.Name{}, fmt.Errorf("failed to read body: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name, nil
		}
	}
}

// Decode unmarshals the first element of the body into v.
func (b Body) Decode(v any) error {
	if len(bytes.TrimSpace(b.Content)) == 0 {
		return errors.New("empty body")
	}
	if err := xml.Unmarshal(b.Content, v); err != nil {
		return fmt.Errorf("failed to parse body: %w", err)
	}
	return nil
}
