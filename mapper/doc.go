// Package mapper provides a document mapper for schemaless key-value
// stores: documents declare associations to other documents or to embedded
// sub-structures, and saving, loading, and mutating a document propagates
// to its related documents according to each association's storage
// strategy.
//
// # Model
//
// A [Schema] declares a document type's scalar properties and its
// associations. Each association is a [Descriptor] fixed at definition
// time along four axes: cardinality (one or many), containment
// ([Embedded] inline in the owner's record, or [Referenced] with an
// independent lifecycle), key strategy ([SharedKey], [StoredKey], [Link],
// [OwnKey]), and target type. Schemas register in a [Registry]:
//
//	registry := mapper.NewRegistry()
//	registry.MustRegister(&mapper.Schema{
//	    Type:   "person",
//	    Bucket: "people",
//	    Properties: []mapper.Property{
//	        {Name: "name", Kind: mapper.KindString, Required: true},
//	    },
//	    Associations: []mapper.Descriptor{
//	        {Name: "address", Cardinality: mapper.One, Containment: mapper.Embedded, TargetType: "address"},
//	        {Name: "profile", Cardinality: mapper.One, Containment: mapper.Referenced, KeyStrategy: mapper.SharedKey, TargetType: "profile"},
//	        {Name: "friends", Cardinality: mapper.Many, Containment: mapper.Referenced, KeyStrategy: mapper.Link, TargetType: "person"},
//	    },
//	})
//
// # Proxies
//
// Association access goes through proxy objects ([Single] for one
// cardinality, [Collection] for many) which load lazily on first access
// and buffer mutations until the owner's next save. Referenced targets
// that no longer exist in the store resolve to absence, never to an error.
//
// # Cascade save
//
// [Mapper.Save] walks the association graph: stored-key targets persist
// before the owner so their keys can be written into the owner's record,
// the owner's record (with embedded structures inline and buffered
// removals committed) is written next, shared-key and link targets follow.
// A per-invocation identity-keyed visited set makes cyclic graphs
// terminate. There are no cross-document transactions: a failure leaves
// earlier writes persisted.
//
// # Errors
//
//   - [ErrUnknownType], [ErrUnknownProperty], [ErrTypeMismatch] - schema misuse
//   - [KeyConflictError] - a shared-key target already carries a different key
//   - [ValidationError] - a document in the cascade failed validation
//   - [ErrDeleted] - saving a destroyed document
//
// Store failures propagate verbatim from the kv backend.
package mapper
