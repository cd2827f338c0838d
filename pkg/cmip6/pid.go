package cmip6

import (
	"fmt"
	"strconv"
	"strings"

	"esghandlers/pkg/config"
	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"
	"esghandlers/pkg/utils"

	"go.uber.org/zap"
)

const (
	PIDPrefix   = "21.14100"
	PIDExchange = "esgffed-exchange"

	citationURLTemplate = "http://cera-www.dkrz.de/WDCC/meta/CMIP6/%s.v%s.json"
)

// CheckPIDAvail returns the PID prefix for the project. Integer versions
// that are not dates (unversioned local indexes) get no PID and "" is
// returned. Any other version, including nil, gets the prefix.
func (h *Handler) CheckPIDAvail(section string, cfg handler.Config, version any) string {
	if n, ok := integerVersion(version); ok && !utils.IsDatedVersion(n) {
		h.Logger().Warn(fmt.Sprintf("Version %s, skipping PID generation.", n),
			zap.String("section", section))
		return ""
	}
	return PIDPrefix
}

// integerVersion returns the decimal form of version when it is an integer.
func integerVersion(version any) (string, bool) {
	switch v := version.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	default:
		return "", false
	}
}

// GetPIDConfig parses the pid_credentials option of section into the
// messaging configuration used for PID registration.
//
// Each line of pid_credentials is a record
//
//	url | port | vhost | user | password | ssl_enabled [| priority]
//
// A record without a priority takes the previous record's priority plus one.
func (h *Handler) GetPIDConfig(section string, cfg handler.Config) (*types.PIDConfig, error) {
	if cfg == nil || !cfg.HasSection(section) {
		return nil, handler.PublishErrorf("Section '%s' not found in esg.ini.", section)
	}

	records := config.SplitRecord(cfg.Get(section, "pid_credentials", ""), "|")
	if len(records) == 0 {
		return nil, handler.PublishErrorf("Option 'pid_credentials' missing in section '%s' of esg.ini. "+
			"Please contact your tier1 data node admin to get the proper values.", section)
	}

	pidConfig := &types.PIDConfig{Exchange: PIDExchange}
	priority := 0

	for _, cred := range records {
		switch {
		case len(cred) == 7 && isInteger(cred[6]):
			priority, _ = strconv.Atoi(strings.TrimSpace(cred[6]))
		case len(cred) == 6:
			priority++
		default:
			return nil, handler.PublishErrorf("Misconfiguration: 'pid_credentials', section '%s' of esg.ini.", section)
		}

		pidConfig.Credentials = append(pidConfig.Credentials, types.Credential{
			URL:        strings.TrimSpace(cred[0]),
			Port:       strings.TrimSpace(cred[1]),
			VHost:      strings.TrimSpace(cred[2]),
			User:       strings.TrimSpace(cred[3]),
			Password:   strings.TrimSpace(cred[4]),
			SSLEnabled: strings.ToUpper(strings.TrimSpace(cred[5])) == "TRUE",
			Priority:   priority,
		})
	}

	return pidConfig, nil
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil
}

// GetCitationURL returns the DKRZ citation URL of a dataset version.
func (h *Handler) GetCitationURL(section string, cfg handler.Config, name, version string) string {
	return fmt.Sprintf(citationURLTemplate, name, version)
}
