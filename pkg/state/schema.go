package state

// Schema contains the SQL statements to create the local state database.
const Schema = `
-- Key/value records grouped by namespace, values stored as JSON
CREATE TABLE IF NOT EXISTS kv (
    namespace  TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_kv_namespace ON kv(namespace);
`

// Namespaces used by the dashboard.
const (
	NamespacePrefs    = "prefs"
	NamespaceProfile  = "profile"
	NamespaceAlly     = "ally"
	NamespaceAdmin    = "admin"
	NamespaceSelfTest = "selftest"
	NamespaceProbe    = "probe"
)
