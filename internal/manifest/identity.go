package manifest

import (
	"strings"

	"github.com/google/uuid"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// NamespaceObjectIdentity is the UUID v5 namespace for object identities.
var NamespaceObjectIdentity = uuid.NewSHA1(uuid.NameSpaceURL, []byte("dbobj/object-identity/v1"))

// ObjectID derives a deterministic identity from the application, kind and
// name of an object. The same object gets the same ID in every version, so
// manifests can be compared without relying on file paths.
//
// The application part is case-insensitive; the name keeps its case because
// quoted identifiers are case-sensitive.
func ObjectID(app string, kind dbobj.ObjectKind, name string) uuid.UUID {
	key := strings.ToLower(app) + "/" + string(kind) + "/" + name
	return uuid.NewSHA1(NamespaceObjectIdentity, []byte(key))
}
