package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/teamdesk/internal/docstore"
)

const (
	fieldCollection = "collection"
	fieldID         = "id"
	fieldData       = "data"
)

// ErrMalformedMessage is returned when a message lacks required fields.
var ErrMalformedMessage = errors.New("malformed message")

// NewListRequest builds the List request for collection.
func NewListRequest(collection string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldCollection: structpb.NewStringValue(collection),
	}}
}

// NewDocumentRequest builds an Upsert or Delete request. data may be nil
// for Delete.
func NewDocumentRequest(collection, id string, data json.RawMessage) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldCollection: structpb.NewStringValue(collection),
		fieldID:         structpb.NewStringValue(id),
	}
	if data != nil {
		fields[fieldData] = structpb.NewStringValue(string(data))
	}
	return &structpb.Struct{Fields: fields}
}

// Request is the decoded form of a DocumentService request.
type Request struct {
	Collection string
	ID         string
	Data       json.RawMessage
}

// ParseRequest extracts the request fields. Collection is always required;
// the caller checks ID and Data per method.
func ParseRequest(in *structpb.Struct) (Request, error) {
	f := in.GetFields()
	r := Request{
		Collection: f[fieldCollection].GetStringValue(),
		ID:         f[fieldID].GetStringValue(),
	}
	if r.Collection == "" {
		return Request{}, fmt.Errorf("%w: missing %s", ErrMalformedMessage, fieldCollection)
	}
	if v, ok := f[fieldData]; ok {
		r.Data = json.RawMessage(v.GetStringValue())
	}
	return r, nil
}

// NewDocumentList encodes docs as the List response.
func NewDocumentList(docs []docstore.Document) *structpb.ListValue {
	values := make([]*structpb.Value, 0, len(docs))
	for _, d := range docs {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldID:   structpb.NewStringValue(d.ID),
			fieldData: structpb.NewStringValue(string(d.Data)),
		}}))
	}
	return &structpb.ListValue{Values: values}
}

// ParseDocumentList decodes a List response.
func ParseDocumentList(lv *structpb.ListValue) ([]docstore.Document, error) {
	docs := make([]docstore.Document, 0, len(lv.GetValues()))
	for i, v := range lv.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("%w: item %d is not a struct", ErrMalformedMessage, i)
		}
		id := s.GetFields()[fieldID].GetStringValue()
		if id == "" {
			return nil, fmt.Errorf("%w: item %d has no id", ErrMalformedMessage, i)
		}
		docs = append(docs, docstore.Document{
			ID:   id,
			Data: json.RawMessage(s.GetFields()[fieldData].GetStringValue()),
		})
	}
	return docs, nil
}
