package codec

import (
	"testing"

	"github.com/mvi-llc/wasm-cbuf/internal/descriptor"
	"go.uber.org/mock/gomock"
)

// TestDeserializeWithProviderMockResolvesHash exercises the
// DescriptorProvider seam with the generated gomock double rather than
// a real schema, so the resolve-and-decode path is verified without
// depending on internal/descriptor's Bootstrap() parse succeeding.
func TestDeserializeWithProviderMockResolvesHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockProvider := NewMockDescriptorProvider(ctrl)

	foo := &descriptor.Struct{
		Name:    "messages::foo",
		Naked:   true,
		Elements: []descriptor.Element{{Name: "x", Type: "uint8"}},
	}
	mockProvider.EXPECT().Resolve(uint64(1)).Return(foo, true)

	buf := []byte{
		0x54, 0x4E, 0x44, 0x56,
		0x19, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x2A,
	}

	rec, err := DeserializeWithProvider(nil, mockProvider, buf, 0)
	if err != nil {
		t.Fatalf("DeserializeWithProvider: %v", err)
	}
	if rec.TypeName != "messages::foo" {
		t.Fatalf("got TypeName %q, want messages::foo", rec.TypeName)
	}
	if x, ok := rec.Message["x"].(uint8); !ok || x != 42 {
		t.Fatalf("message.x = %v, want uint8(42)", rec.Message["x"])
	}
}

// TestDeserializeWithProviderMockMiss verifies the UnknownHash path
// when the mock reports no match.
func TestDeserializeWithProviderMockMiss(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockProvider := NewMockDescriptorProvider(ctrl)
	mockProvider.EXPECT().Resolve(uint64(9)).Return(nil, false)

	buf := []byte{
		0x54, 0x4E, 0x44, 0x56,
		0x18, 0x00, 0x00, 0x00,
		0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	_, err := DeserializeWithProvider(nil, mockProvider, buf, 0)
	var cerr *Error
	if !asError(err, &cerr) || cerr.Kind != KindUnknownHash {
		t.Fatalf("got %v, want KindUnknownHash", err)
	}
}
