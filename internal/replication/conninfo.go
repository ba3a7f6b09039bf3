package replication

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// ConnInfo renders config in libpq keyword/value form, the format CREATE
// SUBSCRIPTION expects. The subscriber connects with these settings, so the
// host must be reachable from the target server.
func ConnInfo(config *dbobj.ConnectionConfig) string {
	params := map[string]string{
		"host":   config.Host,
		"dbname": config.Database,
	}
	if config.Port != 0 {
		params["port"] = strconv.Itoa(config.Port)
	}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("user", config.Username)
	set("password", config.Password)
	set("sslmode", config.SSLMode)
	set("sslcert", config.SSLCert)
	set("sslkey", config.SSLKey)
	set("sslrootcert", config.SSLRootCert)
	set("application_name", config.AppName)
	if config.ConnectTimeout > 0 {
		params["connect_timeout"] = strconv.Itoa(int(config.ConnectTimeout.Seconds()))
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+connValue(params[k]))
	}
	return strings.Join(parts, " ")
}

func connValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
