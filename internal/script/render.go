package script

import (
	"fmt"
	"path/filepath"
	"strings"

	"slimsweep/internal/jobspace"
)

const (
	markerPrefix      = "# slimsweep: "
	defaultShell      = "#!/bin/bash -l"
	submitDirVar      = "$PBS_O_WORKDIR"
	arrayIndexVar     = "PBS_ARRAY_INDEX"
	driverCommandName = "slim_cmd"
)

// markers are the header lines both artifacts carry so their job spaces can
// be compared after the fact.
func (c Config) markers() []string {
	names := c.paramNames()
	lines := []string{
		fmt.Sprintf("parameters=%d (%s)", len(names), strings.Join(names, ",")),
		"seeds=" + c.seedsFile,
	}
	if len(c.params) > 0 {
		lines = append(lines, "combinations="+c.combosFile)
	}
	lines = append(lines, "outputs="+strings.Join(c.outputs, ","))
	if len(c.params) > 0 {
		lines = append(lines, "nesting="+c.nesting.String())
	}
	for i := range lines {
		lines[i] = markerPrefix + lines[i]
	}
	return lines
}

// RenderResourceScript renders the batch scheduler submission script.
func RenderResourceScript(c Config) string {
	var b strings.Builder
	shell := c.shell
	if strings.TrimSpace(shell) == "" {
		shell = defaultShell
	}
	b.WriteString(shell + "\n")
	if c.queue != "" {
		fmt.Fprintf(&b, "#PBS -q %s\n", c.queue)
	}
	if c.account != "" {
		fmt.Fprintf(&b, "#PBS -A %s\n", c.account)
	}
	fmt.Fprintf(&b, "#PBS -N %s\n", c.jobName)
	fmt.Fprintf(&b, "#PBS -l walltime=%s\n", c.walltime)
	fmt.Fprintf(&b, "#PBS -l nodes=1:ncpus=%d:mem=%dGB\n", c.cores, c.memoryGB)
	if c.jobArray != "" {
		fmt.Fprintf(&b, "#PBS -J %s\n", c.jobArray)
	}
	for _, m := range c.markers() {
		b.WriteString(m + "\n")
	}

	b.WriteString("\n")
	if c.scratchDir != "" {
		fmt.Fprintf(&b, "cd %s\n", c.scratchDir)
	}
	if c.rModule != "" {
		fmt.Fprintf(&b, "module load %s\n", c.rModule)
	}
	b.WriteString("\nSECONDS=0\n")
	fmt.Fprintf(&b, "R --file=%s\n", submitRelative(c.DriverPath()))

	if len(c.outputs) > 0 {
		b.WriteString("\n")
		scratch := c.scratchDir
		if scratch == "" {
			scratch = "."
		}
		for _, out := range c.outputs {
			fmt.Fprintf(&b, "cat %s/%s >> %s/%s\n", scratch, out, c.resultsDir, out)
		}
	}

	b.WriteString("\nDURATION=$SECONDS\n")
	b.WriteString(`echo "$(($DURATION / 3600)) hours, $((($DURATION / 60) % 60)) minutes, and $(($DURATION % 60)) seconds elapsed."` + "\n")
	return b.String()
}

// submitRelative anchors a relative path at the directory qsub ran in, since
// the job changes into scratch before R starts.
func submitRelative(path string) string {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "~") || strings.HasPrefix(path, "$") {
		return path
	}
	return submitDirVar + "/" + filepath.ToSlash(filepath.Clean(path))
}

const rHelpers = `inputs <- Sys.getenv('PBS_O_WORKDIR', unset = '.')
input_path <- function(path) {
  if (grepl('^(/|~)', path)) path else file.path(inputs, path)
}

# Numbers are passed in fixed notation with the fewest digits that read
# back as the same double, and a decimal point so the simulator types them
# as floats.
slim_num <- function(x) {
  v <- as.numeric(x)
  for (d in 1:17) {
    s <- format(v, scientific = FALSE, digits = d, trim = TRUE)
    if (as.numeric(s) == v) break
  }
  if (!grepl('.', s, fixed = TRUE)) s <- paste0(s, '.0')
  s
}

# Strings become a single-quoted literal inside a double-quoted shell word.
escape_chars <- function(x, set) {
  chars <- strsplit(x, '')[[1]]
  hit <- chars %in% set
  chars[hit] <- paste0('\\', chars[hit])
  paste(chars, collapse = '')
}
slim_str <- function(x) {
  x <- escape_chars(x, c('\\', "'"))
  escape_chars(x, c('\\', '"', '$', '` + "`" + `'))
}
`

// readTableHelper renders read_table, which splits a table the way the
// local loader does: whitespace-only and comment lines dropped, cells kept
// verbatim as text, header names trimmed.
func readTableHelper(c Config) string {
	var b strings.Builder
	b.WriteString("read_table <- function(path, header) {\n")
	b.WriteString("  lines <- readLines(input_path(path), warn = FALSE)\n")
	b.WriteString(`  lines <- lines[!grepl('^\\s*$', lines)]` + "\n")
	if c.comment != 0 {
		fmt.Fprintf(&b, "  lines <- lines[!startsWith(lines, %s)]\n", rString(string(c.comment), '\''))
	}
	fmt.Fprintf(&b, "  t <- read.csv(text = lines, header = header, sep = %s, colClasses = 'character',\n", rString(string(c.comma), '\''))
	b.WriteString("    check.names = FALSE, strip.white = FALSE, comment.char = '')\n")
	b.WriteString("  names(t) <- trimws(names(t))\n")
	b.WriteString("  t\n")
	b.WriteString("}\n")
	return b.String()
}

// RenderDriverScript renders the R driver that fans the job space out over
// a doParallel cluster.
func RenderDriverScript(c Config) string {
	var b strings.Builder
	for _, m := range c.markers() {
		b.WriteString(m + "\n")
	}
	b.WriteString("USER <- Sys.getenv('USER')\n\n")
	b.WriteString("library(foreach)\nlibrary(doParallel)\nlibrary(future)\n\n")
	b.WriteString(rHelpers + "\n")

	header := "TRUE"
	if !c.seedsHead {
		header = "FALSE"
	}
	b.WriteString(readTableHelper(c) + "\n")
	fmt.Fprintf(&b, "seeds <- read_table(%s, header = %s)\n", rString(c.seedsFile, '\''), header)
	if len(c.params) > 0 {
		fmt.Fprintf(&b, "combos <- read_table(%s, header = TRUE)\n", rString(c.combosFile, '\''))
		if c.jobArray != "" {
			fmt.Fprintf(&b, "\narray_index <- as.integer(Sys.getenv('%s', unset = '0'))\n", arrayIndexVar)
			b.WriteString("if (!is.na(array_index) && array_index > 0) {\n")
			b.WriteString("  combos <- combos[array_index, , drop = FALSE]\n")
			b.WriteString("}\n")
		}
	}

	b.WriteString("\ncl <- makeCluster(future::availableCores())\n")
	b.WriteString("registerDoParallel(cl)\n\n")
	fmt.Fprintf(&b, "%s <- %s\n", driverCommandName, rString(commandFormat(c), '"'))

	seedLoop := fmt.Sprintf("foreach(j=seeds$%s, .combine = c)", c.seedColumn)
	comboLoop := "foreach(i=seq_len(nrow(combos)), .combine = c)"
	switch {
	case len(c.params) == 0:
		fmt.Fprintf(&b, "status <- %s %%dopar%% {\n", seedLoop)
	case c.nesting == jobspace.SeedsOuter:
		fmt.Fprintf(&b, "status <- %s %%:%%\n  %s %%dopar%% {\n", seedLoop, comboLoop)
	default:
		fmt.Fprintf(&b, "status <- %s %%:%%\n  %s %%dopar%% {\n", comboLoop, seedLoop)
	}
	fmt.Fprintf(&b, "    system(sprintf(%s))\n", strings.Join(commandArgs(c), ", "))
	b.WriteString("  }\n\n")

	b.WriteString("stopCluster(cl)\n\n")
	b.WriteString("failed <- sum(status != 0)\n")
	b.WriteString("if (failed > 0) {\n")
	b.WriteString("  message(sprintf('%d of %d simulator runs failed', failed, length(status)))\n")
	b.WriteString("  quit(status = 1)\n")
	b.WriteString("}\n")
	return b.String()
}

// commandFormat is the sprintf template of one simulator invocation: the
// seed, then one define per parameter, then the model script. Binary and
// script are inserted verbatim so the remote shell can expand them.
func commandFormat(c Config) string {
	parts := []string{escapePercent(c.binary), c.seedFlag, "%s"}
	for _, p := range c.params {
		if p.Kind == jobspace.String {
			parts = append(parts, jobspace.DefineFlag, fmt.Sprintf(`"%s='%%s'"`, p.Name))
		} else {
			parts = append(parts, jobspace.DefineFlag, p.Name+"=%s")
		}
	}
	parts = append(parts, escapePercent(c.script))
	return strings.Join(parts, " ")
}

func commandArgs(c Config) []string {
	args := []string{driverCommandName, "j"}
	for _, p := range c.params {
		fn := "slim_num"
		if p.Kind == jobspace.String {
			fn = "slim_str"
		}
		args = append(args, fmt.Sprintf("%s(combos$%s[i])", fn, p.Name))
	}
	return args
}

func escapePercent(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

// rString renders s as an R string literal delimited by quote.
func rString(s string, quote byte) string {
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '\\', quote:
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
