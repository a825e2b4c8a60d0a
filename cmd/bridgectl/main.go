// Command bridgectl is the operator console for a bridge layer deployment.
// It signs every request with the operator's key so the server can verify
// who acted, lists bridges and receipts, and renders hourly usage meters.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/OmniStable-Network/bridge_layer/internal/cli"
	"github.com/OmniStable-Network/bridge_layer/internal/httputil"
)

var version = "dev"

func main() {
	server := flag.String("server", envOr("BRIDGE_SERVER", "http://localhost:8080"), "bridge API base URL")
	keyHex := flag.String("key", os.Getenv("BRIDGE_KEY"), "hex-encoded signing key")
	keyFile := flag.String("keyfile", os.Getenv("BRIDGE_KEYFILE"), "file containing the hex-encoded signing key")
	caller := flag.String("caller", os.Getenv("BRIDGE_CALLER"), "claimed address for unsigned requests (dev servers only)")
	timeout := flag.Int("timeout", 30, "request timeout in seconds")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("bridgectl", version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	cmd, rest := args[0], args[1:]

	// These need no server connection.
	switch cmd {
	case "help":
		usage()
		return
	case "version":
		fmt.Println("bridgectl", version)
		return
	case "completion":
		if err := runCompletion(rest); err != nil {
			cli.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	client, err := buildClient(*server, *keyHex, *keyFile, *caller, time.Duration(*timeout)*time.Second)
	if err != nil {
		cli.Error(err.Error())
		os.Exit(1)
	}

	if err := run(context.Background(), client, cmd, rest); err != nil {
		cli.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, client *httputil.Client, cmd string, args []string) error {
	switch cmd {
	case "status":
		return showStatus(ctx, client)
	case "bridges":
		return listBridges(ctx, client)
	case "bridge":
		if len(args) != 1 {
			return fmt.Errorf("usage: bridgectl bridge <token>")
		}
		return showBridge(ctx, client, args[0])
	case "register":
		return registerBridge(ctx, client, args)
	case "set":
		return updateBridge(ctx, client, args)
	case "deregister":
		if len(args) != 1 {
			return fmt.Errorf("usage: bridgectl deregister <token>")
		}
		return deregisterBridge(ctx, client, args[0])
	case "chain-limit":
		return chainLimit(ctx, client, args)
	case "swap":
		return runSwap(ctx, client, args)
	case "usage":
		return showUsage(ctx, client, args)
	case "exemptions":
		return runExemptions(ctx, client, args)
	case "minters":
		return runMinters(ctx, client, args)
	case "supply":
		return showSupply(ctx, client)
	case "receipts":
		return listReceipts(ctx, client, args)
	case "audit":
		return listAudit(ctx, client, args)
	case "recover":
		return recoverAsset(ctx, client, args)
	default:
		return fmt.Errorf("unknown command %q, run bridgectl help", cmd)
	}
}

func buildClient(server, keyHex, keyFile, caller string, timeout time.Duration) (*httputil.Client, error) {
	cfg := httputil.ClientConfig{BaseURL: server, Timeout: timeout}

	if keyFile != "" && keyHex == "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		keyHex = strings.TrimSpace(string(data))
	}
	switch {
	case keyHex != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signing key: %w", err)
		}
		cfg.Key = key
	case caller != "":
		if !common.IsHexAddress(caller) {
			return nil, fmt.Errorf("%q is not a hex address", caller)
		}
		cfg.Caller = common.HexToAddress(caller)
	}
	return httputil.NewClient(cfg), nil
}

// bridgeInfo mirrors the API's bridge view; Used and Held are only present
// on single-bridge reads.
type bridgeInfo struct {
	Token       string `json:"token"`
	Cap         string `json:"cap"`
	HourlyLimit string `json:"hourly_limit"`
	Fee         uint64 `json:"fee"`
	Paused      bool   `json:"paused"`
	Used        string `json:"used"`
	Held        string `json:"held"`
}

type swapReceipt struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Token     string `json:"token"`
	Recipient string `json:"recipient"`
	Requested string `json:"requested"`
	Accepted  string `json:"accepted"`
	Realized  string `json:"realized"`
	Fee       string `json:"fee"`
	Hour      int64  `json:"hour"`
	CreatedAt string `json:"created_at"`
}

func showStatus(ctx context.Context, client *httputil.Client) error {
	resp, err := client.Get(ctx, "/system/status")
	if err != nil {
		return err
	}
	var status struct {
		Status        string   `json:"status"`
		UptimeSeconds int64    `json:"uptime_seconds"`
		Services      []string `json:"services"`
		EventClients  int      `json:"event_clients"`
	}
	if err := httputil.DecodeResponse(resp, &status); err != nil {
		return err
	}

	if status.Status == "ok" {
		cli.Success(fmt.Sprintf("service healthy, up %s", time.Duration(status.UptimeSeconds)*time.Second))
	} else {
		cli.Warning("service reports " + status.Status)
	}
	fmt.Printf("  services:      %s\n", strings.Join(status.Services, ", "))
	fmt.Printf("  event clients: %d\n", status.EventClients)
	return nil
}

func listBridges(ctx context.Context, client *httputil.Client) error {
	resp, err := client.Get(ctx, "/bridges")
	if err != nil {
		return err
	}
	var bridges []bridgeInfo
	if err := httputil.DecodeResponse(resp, &bridges); err != nil {
		return err
	}

	if len(bridges) == 0 {
		cli.Info("no bridges registered")
		return nil
	}
	fmt.Printf("%-44s %16s %16s %12s %s\n", "TOKEN", "CAP", "HOURLY LIMIT", "FEE (1e-9)", "STATE")
	for _, b := range bridges {
		state := cli.Colorize("active", cli.ColorGreen)
		if b.Paused {
			state = cli.Colorize("paused", cli.ColorYellow)
		}
		fmt.Printf("%-44s %16s %16s %12d %s\n", b.Token, b.Cap, b.HourlyLimit, b.Fee, state)
	}
	return nil
}

func showBridge(ctx context.Context, client *httputil.Client, token string) error {
	resp, err := client.Get(ctx, "/bridges/"+token)
	if err != nil {
		return err
	}
	var b bridgeInfo
	if err := httputil.DecodeResponse(resp, &b); err != nil {
		return err
	}

	state := cli.Colorize("active", cli.ColorGreen)
	if b.Paused {
		state = cli.Colorize("paused", cli.ColorYellow)
	}
	fmt.Printf("token:        %s\n", b.Token)
	fmt.Printf("state:        %s\n", state)
	fmt.Printf("cap:          %s\n", b.Cap)
	fmt.Printf("hourly limit: %s\n", b.HourlyLimit)
	fmt.Printf("fee:          %d per 1e9\n", b.Fee)
	fmt.Printf("held:         %s\n", b.Held)
	fmt.Printf("used (hour):  %s\n", b.Used)
	return nil
}

func registerBridge(ctx context.Context, client *httputil.Client, args []string) error {
	token, rest, err := splitToken(args)
	if err != nil {
		return fmt.Errorf("usage: bridgectl register <token> [--cap N] [--hourly-limit N] [--fee PPB]")
	}
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	capFlag := fs.String("cap", "0", "total collateral cap, 0 for unlimited")
	limit := fs.String("hourly-limit", "0", "inbound hourly limit, 0 for unlimited")
	fee := fs.Uint64("fee", 0, "swap fee in parts per 1e9")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	spin := cli.NewSpinner("registering " + token)
	spin.Start()
	resp, err := client.Post(ctx, "/bridges", map[string]interface{}{
		"token":        token,
		"cap":          *capFlag,
		"hourly_limit": *limit,
		"fee":          *fee,
	})
	if err != nil {
		spin.Stop()
		return err
	}
	var b bridgeInfo
	if err := httputil.DecodeResponse(resp, &b); err != nil {
		spin.Stop()
		return err
	}
	spin.Success(fmt.Sprintf("bridge %s registered (cap %s, hourly limit %s, fee %d)", b.Token, b.Cap, b.HourlyLimit, b.Fee))
	return nil
}

func updateBridge(ctx context.Context, client *httputil.Client, args []string) error {
	token, rest, err := splitToken(args)
	if err != nil {
		return fmt.Errorf("usage: bridgectl set <token> [--cap N] [--hourly-limit N] [--fee PPB] [--pause|--resume]")
	}
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	capFlag := fs.String("cap", "", "total collateral cap")
	limit := fs.String("hourly-limit", "", "inbound hourly limit")
	fee := fs.Uint64("fee", 0, "swap fee in parts per 1e9")
	pause := fs.Bool("pause", false, "pause swaps on this bridge")
	resume := fs.Bool("resume", false, "resume swaps on this bridge")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *pause && *resume {
		return fmt.Errorf("--pause and --resume are mutually exclusive")
	}

	patch := map[string]interface{}{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cap":
			patch["cap"] = *capFlag
		case "hourly-limit":
			patch["hourly_limit"] = *limit
		case "fee":
			patch["fee"] = *fee
		case "pause":
			patch["paused"] = true
		case "resume":
			patch["paused"] = false
		}
	})
	if len(patch) == 0 {
		return fmt.Errorf("nothing to change, pass at least one flag")
	}

	resp, err := client.Patch(ctx, "/bridges/"+token, patch)
	if err != nil {
		return err
	}
	var b bridgeInfo
	if err := httputil.DecodeResponse(resp, &b); err != nil {
		return err
	}
	cli.Success(fmt.Sprintf("bridge %s updated (cap %s, hourly limit %s, fee %d, paused %v)", b.Token, b.Cap, b.HourlyLimit, b.Fee, b.Paused))
	return nil
}

func deregisterBridge(ctx context.Context, client *httputil.Client, token string) error {
	resp, err := client.Delete(ctx, "/bridges/"+token)
	if err != nil {
		return err
	}
	if err := httputil.DecodeResponse(resp, nil); err != nil {
		return err
	}
	cli.Success("bridge " + token + " deregistered")
	return nil
}

func chainLimit(ctx context.Context, client *httputil.Client, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: bridgectl chain-limit [<amount>]")
	}

	var out struct {
		HourlyLimit string `json:"hourly_limit"`
	}
	if len(args) == 0 {
		resp, err := client.Get(ctx, "/chain-limit")
		if err != nil {
			return err
		}
		if err := httputil.DecodeResponse(resp, &out); err != nil {
			return err
		}
		if out.HourlyLimit == "0" {
			cli.Warning("chain hourly limit is 0, outbound swaps are closed")
		} else {
			fmt.Printf("chain hourly limit: %s\n", out.HourlyLimit)
		}
		return nil
	}

	resp, err := client.Put(ctx, "/chain-limit", map[string]string{"hourly_limit": args[0]})
	if err != nil {
		return err
	}
	if err := httputil.DecodeResponse(resp, &out); err != nil {
		return err
	}
	cli.Success("chain hourly limit set to " + out.HourlyLimit)
	return nil
}

func runSwap(ctx context.Context, client *httputil.Client, args []string) error {
	if len(args) < 3 || (args[0] != "in" && args[0] != "out") {
		return fmt.Errorf("usage: bridgectl swap in|out <token> <amount> [--recipient ADDR]")
	}
	direction, token, amount := args[0], args[1], args[2]

	fs := flag.NewFlagSet("swap", flag.ContinueOnError)
	recipient := fs.String("recipient", "", "credit this address instead of the caller")
	if err := fs.Parse(args[3:]); err != nil {
		return err
	}

	spin := cli.NewSpinner(fmt.Sprintf("swapping %s %s %s", amount, token, direction))
	spin.Start()
	resp, err := client.Post(ctx, "/swaps/"+direction, map[string]string{
		"token":     token,
		"amount":    amount,
		"recipient": *recipient,
	})
	if err != nil {
		spin.Stop()
		return err
	}
	var rcpt swapReceipt
	if err := httputil.DecodeResponse(resp, &rcpt); err != nil {
		spin.Stop()
		return err
	}

	spin.Success(fmt.Sprintf("swap %s accepted", rcpt.Direction))
	fmt.Printf("  requested: %s\n", rcpt.Requested)
	fmt.Printf("  accepted:  %s\n", rcpt.Accepted)
	fmt.Printf("  fee:       %s\n", rcpt.Fee)
	fmt.Printf("  realized:  %s\n", rcpt.Realized)
	fmt.Printf("  recipient: %s\n", rcpt.Recipient)
	if rcpt.Accepted != rcpt.Requested {
		cli.Warning("amount was clamped by cap or hourly headroom")
	}
	return nil
}

func showUsage(ctx context.Context, client *httputil.Client, args []string) error {
	var (
		path   string
		prefix string
	)
	switch len(args) {
	case 0:
		path = "/usage/total"
		prefix = "chain outbound"
	case 1:
		path = "/bridges/" + args[0] + "/usage"
		prefix = shortAddress(args[0])
	default:
		return fmt.Errorf("usage: bridgectl usage [<token>]")
	}

	resp, err := client.Get(ctx, path)
	if err != nil {
		return err
	}
	var usage struct {
		Hour        int64  `json:"hour"`
		Used        string `json:"used"`
		HourlyLimit string `json:"hourly_limit"`
	}
	if err := httputil.DecodeResponse(resp, &usage); err != nil {
		return err
	}
	return renderUsage(prefix, usage.Used, usage.HourlyLimit, usage.Hour)
}

func renderUsage(prefix, used, limit string, hour int64) error {
	u, err := uint256.FromDecimal(used)
	if err != nil {
		return fmt.Errorf("server sent used=%q: %w", used, err)
	}
	l, err := uint256.FromDecimal(limit)
	if err != nil {
		return fmt.Errorf("server sent hourly_limit=%q: %w", limit, err)
	}
	if l.IsZero() {
		cli.Warning(fmt.Sprintf("%s: hourly limit is zero (used %s in hour %d)", prefix, used, hour))
		return nil
	}

	scaled := new(uint256.Int).Mul(u, uint256.NewInt(1000))
	scaled.Div(scaled, l)
	pct := 100.0
	if !scaled.GtUint64(1000) {
		pct = float64(scaled.Uint64()) / 10
	}

	caption := fmt.Sprintf("%s / %s (hour %d)", used, limit, hour)
	cli.NewUsageMeter(prefix).Render(pct, caption)
	return nil
}

func runExemptions(ctx context.Context, client *httputil.Client, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		resp, err := client.Get(ctx, "/exemptions")
		if err != nil {
			return err
		}
		var addrs []string
		if err := httputil.DecodeResponse(resp, &addrs); err != nil {
			return err
		}
		if len(addrs) == 0 {
			cli.Info("no fee exemptions")
			return nil
		}
		for _, addr := range addrs {
			fmt.Println(addr)
		}
		return nil
	}

	if args[0] != "toggle" || len(args) != 2 {
		return fmt.Errorf("usage: bridgectl exemptions [list | toggle <address>]")
	}
	resp, err := client.Post(ctx, "/exemptions", map[string]string{"address": args[1]})
	if err != nil {
		return err
	}
	var out struct {
		Address string `json:"address"`
		Exempt  bool   `json:"exempt"`
	}
	if err := httputil.DecodeResponse(resp, &out); err != nil {
		return err
	}
	if out.Exempt {
		cli.Success(out.Address + " is now fee exempt")
	} else {
		cli.Success(out.Address + " is no longer fee exempt")
	}
	return nil
}

func runMinters(ctx context.Context, client *httputil.Client, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		resp, err := client.Get(ctx, "/minters")
		if err != nil {
			return err
		}
		var addrs []string
		if err := httputil.DecodeResponse(resp, &addrs); err != nil {
			return err
		}
		for _, addr := range addrs {
			fmt.Println(addr)
		}
		return nil
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: bridgectl minters [list | add <address> | remove <address>]")
	}

	switch args[0] {
	case "add":
		resp, err := client.Post(ctx, "/minters", map[string]string{"address": args[1]})
		if err != nil {
			return err
		}
		if err := httputil.DecodeResponse(resp, nil); err != nil {
			return err
		}
		cli.Success(args[1] + " granted mint authority")
	case "remove":
		if !common.IsHexAddress(args[1]) {
			return fmt.Errorf("%q is not a hex address", args[1])
		}
		resp, err := client.Delete(ctx, "/minters/"+args[1])
		if err != nil {
			return err
		}
		if err := httputil.DecodeResponse(resp, nil); err != nil {
			return err
		}
		cli.Success(args[1] + " mint authority revoked")
	default:
		return fmt.Errorf("usage: bridgectl minters [list | add <address> | remove <address>]")
	}
	return nil
}

func showSupply(ctx context.Context, client *httputil.Client) error {
	resp, err := client.Get(ctx, "/token/supply")
	if err != nil {
		return err
	}
	var out struct {
		Supply string `json:"supply"`
	}
	if err := httputil.DecodeResponse(resp, &out); err != nil {
		return err
	}
	fmt.Printf("canonical supply: %s\n", out.Supply)
	return nil
}

func listReceipts(ctx context.Context, client *httputil.Client, args []string) error {
	fs := flag.NewFlagSet("receipts", flag.ContinueOnError)
	token := fs.String("token", "", "filter by bridge token")
	limit := fs.Int("limit", 20, "maximum entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(*limit))
	if *token != "" {
		query.Set("token", *token)
	}
	resp, err := client.Get(ctx, "/swaps/receipts?"+query.Encode())
	if err != nil {
		return err
	}
	var receipts []swapReceipt
	if err := httputil.DecodeResponse(resp, &receipts); err != nil {
		return err
	}

	if len(receipts) == 0 {
		cli.Info("no swap receipts")
		return nil
	}
	fmt.Printf("%-4s %-14s %14s %12s %14s %s\n", "DIR", "TOKEN", "ACCEPTED", "FEE", "REALIZED", "CREATED")
	for _, r := range receipts {
		fmt.Printf("%-4s %-14s %14s %12s %14s %s\n", r.Direction, shortAddress(r.Token), r.Accepted, r.Fee, r.Realized, r.CreatedAt)
	}
	return nil
}

func listAudit(ctx context.Context, client *httputil.Client, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum entries")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := client.Get(ctx, "/audit?limit="+strconv.Itoa(*limit))
	if err != nil {
		return err
	}
	var entries []struct {
		Caller    string `json:"caller"`
		Role      string `json:"role"`
		Action    string `json:"action"`
		Target    string `json:"target"`
		Detail    string `json:"detail"`
		CreatedAt string `json:"created_at"`
	}
	if err := httputil.DecodeResponse(resp, &entries); err != nil {
		return err
	}

	if len(entries) == 0 {
		cli.Info("no governance actions recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s %-22s %-9s %s %s\n", e.CreatedAt, e.Action, e.Role, shortAddress(e.Caller), e.Detail)
	}
	return nil
}

func recoverAsset(ctx context.Context, client *httputil.Client, args []string) error {
	token, rest, err := splitToken(args)
	if err != nil {
		return fmt.Errorf("usage: bridgectl recover <token> --to <address> --amount <N>")
	}
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	to := fs.String("to", "", "destination address")
	amount := fs.String("amount", "", "amount of held collateral to sweep")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if *to == "" || *amount == "" {
		return fmt.Errorf("usage: bridgectl recover <token> --to <address> --amount <N>")
	}

	resp, err := client.Post(ctx, "/recover", map[string]string{
		"asset":  token,
		"to":     *to,
		"amount": *amount,
	})
	if err != nil {
		return err
	}
	if err := httputil.DecodeResponse(resp, nil); err != nil {
		return err
	}
	cli.Success(fmt.Sprintf("swept %s of %s to %s", *amount, token, *to))
	return nil
}

func runCompletion(args []string) error {
	fs := flag.NewFlagSet("completion", flag.ContinueOnError)
	install := fs.Bool("install", false, "write the script to the shell's completion directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: bridgectl completion [--install] bash|zsh|fish")
	}
	if *install {
		return cli.InstallCompletion(fs.Arg(0))
	}
	return cli.GenerateCompletion(fs.Arg(0))
}

// splitToken peels a leading positional token address off the argument list.
func splitToken(args []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, fmt.Errorf("token address required")
	}
	if !common.IsHexAddress(args[0]) {
		return "", nil, fmt.Errorf("%q is not a hex address", args[0])
	}
	return args[0], args[1:], nil
}

func shortAddress(addr string) string {
	if len(addr) > 12 {
		return addr[:8] + ".." + addr[len(addr)-4:]
	}
	return addr
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintf(os.Stderr, `bridgectl %s, the bridge layer operator console

Usage:
  bridgectl [flags] <command> [args]

Commands:
  status                          Service and component status
  bridges                         List registered bridge tokens
  bridge <token>                  Show one bridge with held collateral and usage
  register <token> [flags]        Register a bridge (--cap, --hourly-limit, --fee)
  set <token> [flags]             Update a bridge (--cap, --hourly-limit, --fee, --pause, --resume)
  deregister <token>              Remove a bridge holding no collateral
  chain-limit [<amount>]          Show or set the chain-wide outbound hourly limit
  swap in|out <token> <amount>    Swap collateral against the canonical token
  usage [<token>]                 Render hourly usage meters
  exemptions [list|toggle <addr>] List or toggle fee exemptions
  minters [list|add|remove]       Manage canonical token mint authority
  supply                          Show the canonical token supply
  receipts [--token] [--limit]    List recent swap receipts
  audit [--limit]                 List recent governance actions
  recover <token> --to --amount   Sweep bridge collateral to a governance address
  completion [--install] <shell>  Generate bash, zsh or fish completion
  version                         Print version

Flags:
  --server   Bridge API base URL (BRIDGE_SERVER, default http://localhost:8080)
  --key      Hex-encoded signing key (BRIDGE_KEY)
  --keyfile  File containing the signing key (BRIDGE_KEYFILE)
  --caller   Claimed address for unsigned requests (BRIDGE_CALLER)
  --timeout  Request timeout in seconds (default 30)
`, version)
}
