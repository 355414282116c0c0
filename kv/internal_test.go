package kv

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConfigValidate_Defaults(t *testing.T) {
	c := Config{}
	c.validate()

	if c.DataTable != "lattice_records" {
		t.Errorf("DataTable = %q", c.DataTable)
	}
	if c.LinksTable != "lattice_links" {
		t.Errorf("LinksTable = %q", c.LinksTable)
	}
	if c.NumShards != 1 {
		t.Errorf("NumShards = %d", c.NumShards)
	}
}

func TestConfigValidate_ClampsShards(t *testing.T) {
	c := Config{NumShards: 1000}
	c.validate()
	if c.NumShards != 256 {
		t.Errorf("NumShards = %d, expected clamp to 256", c.NumShards)
	}

	c = Config{NumShards: -5}
	c.validate()
	if c.NumShards != 1 {
		t.Errorf("NumShards = %d, expected floor of 1", c.NumShards)
	}
}

func TestRecordKey(t *testing.T) {
	key := recordKey("people", "k1")

	pk, ok := key["pk"].(*types.AttributeValueMemberS)
	if !ok || pk.Value != "people" {
		t.Errorf("pk = %v", key["pk"])
	}
	sk, ok := key["sk"].(*types.AttributeValueMemberS)
	if !ok || sk.Value != "k1" {
		t.Errorf("sk = %v", key["sk"])
	}
}

func TestEdgeSK(t *testing.T) {
	if got := edgeSK("friends", "k2"); got != "friends#k2" {
		t.Errorf("edgeSK = %q", got)
	}
}

func TestMapTransactionError_PassThrough(t *testing.T) {
	base := errors.New("plain failure")
	if got := mapTransactionError(base); got != base {
		t.Errorf("expected pass-through, got %v", got)
	}
}

func TestMongoRecord_LinkOnlyRecordIsAbsent(t *testing.T) {
	rec := mongoRecord{ID: "k1", Links: map[string][]string{"friends": {"a"}}}
	if _, err := rec.body(); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a record without a body, got %v", err)
	}

	rec.Body = primitive.Binary{Data: []byte(`{}`)}
	body, err := rec.body()
	if err != nil {
		t.Fatalf("body: %v", err)
	}
	if string(body) != `{}` {
		t.Errorf("unexpected body %q", body)
	}
}

func TestMapTransactionError_Canceled(t *testing.T) {
	txErr := &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed")},
		},
	}

	got := mapTransactionError(txErr)
	if !strings.Contains(got.Error(), "ConditionalCheckFailed") {
		t.Errorf("expected cancellation code surfaced, got %v", got)
	}
	if !errors.As(got, &txErr) {
		t.Error("expected original exception preserved in chain")
	}
}
