package script

import (
	"strconv"
	"strings"

	"slimsweep/internal/errs"
	"slimsweep/internal/jobspace"
)

type markerSet struct {
	keys   []string
	values map[string]string
}

func parseMarkers(text string) markerSet {
	m := markerSet{values: make(map[string]string)}
	for _, line := range strings.Split(text, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), markerPrefix)
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		if _, dup := m.values[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.values[key] = value
	}
	return m
}

// parseParameterMarker splits "N (a,b,c)" into its declared count and names.
func parseParameterMarker(value string) (int, []string, error) {
	countText, list, ok := strings.Cut(value, " ")
	if !ok {
		return 0, nil, errs.Configf("malformed parameters marker %q", value)
	}
	n, err := strconv.Atoi(countText)
	if err != nil {
		return 0, nil, errs.Configf("malformed parameters marker %q", value)
	}
	list = strings.TrimSuffix(strings.TrimPrefix(list, "("), ")")
	var names []string
	if list != "" {
		names = strings.Split(list, ",")
	}
	if len(names) != n {
		return 0, nil, errs.Configf("parameters marker declares %d names but lists %d", n, len(names))
	}
	return n, names, nil
}

// driverDefines returns the parameter names of every define flag in the
// driver's command template.
func driverDefines(driver string) ([]string, bool) {
	for _, line := range strings.Split(driver, "\n") {
		if !strings.HasPrefix(line, driverCommandName+" <- ") {
			continue
		}
		fields := strings.Fields(line)
		var names []string
		for i := 0; i+1 < len(fields); i++ {
			if fields[i] != jobspace.DefineFlag {
				continue
			}
			name, _, _ := strings.Cut(strings.TrimLeft(fields[i+1], `\"`), "=")
			names = append(names, name)
		}
		return names, true
	}
	return nil, false
}

// CheckConsistency verifies that a resource script and a driver script
// describe the same job space: the same parameters, seed source,
// combinations file, outputs and nesting, and that the driver really passes
// one define per declared parameter.
func CheckConsistency(resource, driver string) error {
	res := parseMarkers(resource)
	drv := parseMarkers(driver)
	if _, ok := res.values["parameters"]; !ok {
		return errs.Configf("resource script carries no parameters marker")
	}
	if _, ok := drv.values["parameters"]; !ok {
		return errs.Configf("driver script carries no parameters marker")
	}

	keys := append([]string(nil), res.keys...)
	for _, k := range drv.keys {
		if _, ok := res.values[k]; !ok {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		rv, rok := res.values[k]
		dv, dok := drv.values[k]
		if rok != dok || rv != dv {
			return errs.Configf("resource and driver scripts disagree on %s: %q vs %q", k, rv, dv)
		}
	}

	n, names, err := parseParameterMarker(res.values["parameters"])
	if err != nil {
		return err
	}
	defines, ok := driverDefines(driver)
	if !ok {
		return errs.Configf("driver script has no %s template", driverCommandName)
	}
	if len(defines) != n {
		return errs.Configf("driver passes %d parameter definitions, resource script declares %d", len(defines), n)
	}
	for i := range names {
		if defines[i] != names[i] {
			return errs.Configf("driver defines %q at position %d, resource script declares %q", defines[i], i+1, names[i])
		}
	}
	return nil
}
