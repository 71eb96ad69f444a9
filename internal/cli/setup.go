package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/Rashteg/h-opc-rashteg/internal/config"
	"github.com/Rashteg/h-opc-rashteg/internal/discovery"
	"github.com/Rashteg/h-opc-rashteg/internal/opc"
)

// guidedSetup asks for the server type and URL. For DA servers it offers
// the servers found on the chosen host.
func guidedSetup(ctx context.Context, lr LineReader, out io.Writer, cfg *config.Config, log *zap.Logger) (opc.ServerType, string, error) {
	answer, err := ask(lr, "Server type (UA/DA): ")
	if err != nil {
		return "", "", err
	}
	st, err := opc.ParseServerType(answer)
	if err != nil {
		printSupportedTypes(out, answer)
		return "", "", errUnsupportedType
	}

	if st == opc.TypeUA {
		url, err := ask(lr, "Server URL (e.g. opc.tcp://localhost:4840): ")
		return st, url, err
	}

	host, err := ask(lr, "Host [localhost]: ")
	if err != nil {
		return "", "", err
	}
	if host == "" {
		host = "localhost"
	}

	finder := discovery.NewFinder(enumerator(cfg), out, log)
	servers := finder.Discover(ctx, host)
	if len(servers) == 0 {
		url, err := ask(lr, "Server URL (e.g. opcda://localhost/Vendor.Server.1): ")
		return st, url, err
	}

	fmt.Fprintf(out, "Servers on %s:\n", host)
	discovery.Print(out, servers)
	input, err := ask(lr, fmt.Sprintf("Select a server [1-%d] or '%s' to enter a URL: ", len(servers), discovery.ManualEntry))
	if err != nil {
		return "", "", err
	}
	sel, err := discovery.Select(servers, cfg.Discovery.Scheme, host, input)
	if err != nil {
		return "", "", err
	}
	if sel.Manual {
		url, err := ask(lr, "Server URL: ")
		return st, url, err
	}
	return st, sel.URL, nil
}

func enumerator(cfg *config.Config) discovery.Enumerator {
	if len(cfg.Discovery.Servers) > 0 {
		return discovery.Static(cfg.Discovery.Servers)
	}
	return discovery.Unavailable()
}

func ask(lr LineReader, prompt string) (string, error) {
	lr.SetPrompt(prompt)
	line, err := lr.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
