package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// BashCompletion is the bash completion script for bridgectl.
const BashCompletion = `#!/bin/bash
# Bash completion for bridgectl

_bridgectl_completion() {
    local cur prev
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # Main commands
    local commands="status bridges bridge register set deregister chain-limit swap usage exemptions minters supply receipts audit recover version help completion"

    # Global flags
    local global_flags="--server --key --keyfile --caller --timeout --help --version"

    case "${prev}" in
        swap)
            COMPREPLY=( $(compgen -W "in out" -- ${cur}) )
            return 0
            ;;
        minters)
            COMPREPLY=( $(compgen -W "list add remove" -- ${cur}) )
            return 0
            ;;
        exemptions)
            COMPREPLY=( $(compgen -W "list toggle" -- ${cur}) )
            return 0
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            return 0
            ;;
        --keyfile)
            COMPREPLY=( $(compgen -f -- ${cur}) )
            return 0
            ;;
        *)
            ;;
    esac

    COMPREPLY=( $(compgen -W "${commands} ${global_flags}" -- ${cur}) )
    return 0
}

complete -F _bridgectl_completion bridgectl
`

// ZshCompletion is the zsh completion script for bridgectl.
const ZshCompletion = `#compdef bridgectl

_bridgectl() {
    local -a commands
    commands=(
        'status:Show service and component status'
        'bridges:List registered bridge tokens'
        'bridge:Show one bridge with its hourly usage'
        'register:Register a bridge token'
        'set:Update bridge cap, hourly limit, fee or pause state'
        'deregister:Remove a bridge with no outstanding collateral'
        'chain-limit:Show or set the chain-wide outbound hourly limit'
        'swap:Swap into or out of the canonical token'
        'usage:Render hourly usage meters'
        'exemptions:List or toggle fee exemptions'
        'minters:List, add or remove canonical token minters'
        'supply:Show the canonical token supply'
        'receipts:List recent swap receipts'
        'audit:List recent governance audit entries'
        'recover:Sweep bridge collateral to a governance address'
        'version:Show version information'
        'help:Show help information'
        'completion:Generate shell completion script'
    )

    local -a swap_cmds
    swap_cmds=(
        'in:Lock bridge collateral and mint canonical tokens'
        'out:Burn canonical tokens and release collateral'
    )

    local -a minter_cmds
    minter_cmds=(
        'list:List minters'
        'add:Grant mint authority'
        'remove:Revoke mint authority'
    )

    local -a global_flags
    global_flags=(
        '--server[Bridge API base URL]:url:'
        '--key[Hex-encoded signing key]:key:'
        '--keyfile[File containing the signing key]:file:_files'
        '--caller[Claimed address for unsigned requests]:address:'
        '--timeout[Request timeout in seconds]:seconds:'
        '--help[Show help information]'
        '--version[Show version information]'
    )

    _arguments -C \
        '1: :->command' \
        '*:: :->args' \
        $global_flags

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                swap)
                    _describe 'swap direction' swap_cmds
                    ;;
                minters)
                    _describe 'minter command' minter_cmds
                    ;;
                exemptions)
                    _values 'exemption command' list toggle
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_bridgectl "$@"
`

// FishCompletion is the fish completion script for bridgectl.
const FishCompletion = `# Fish completion for bridgectl

# Main commands
complete -c bridgectl -f -n "__fish_use_subcommand" -a "status" -d "Show service and component status"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "bridges" -d "List registered bridge tokens"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "bridge" -d "Show one bridge with its hourly usage"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "register" -d "Register a bridge token"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "set" -d "Update bridge parameters"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "deregister" -d "Remove an empty bridge"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "chain-limit" -d "Show or set the outbound hourly limit"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "swap" -d "Swap into or out of the canonical token"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "usage" -d "Render hourly usage meters"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "exemptions" -d "List or toggle fee exemptions"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "minters" -d "List, add or remove minters"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "supply" -d "Show the canonical token supply"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "receipts" -d "List recent swap receipts"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "audit" -d "List governance audit entries"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "recover" -d "Sweep bridge collateral"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "version" -d "Show version information"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "help" -d "Show help information"
complete -c bridgectl -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion"

# Swap directions
complete -c bridgectl -f -n "__fish_seen_subcommand_from swap" -a "in" -d "Lock collateral, mint canonical tokens"
complete -c bridgectl -f -n "__fish_seen_subcommand_from swap" -a "out" -d "Burn canonical tokens, release collateral"

# Minter subcommands
complete -c bridgectl -f -n "__fish_seen_subcommand_from minters" -a "list" -d "List minters"
complete -c bridgectl -f -n "__fish_seen_subcommand_from minters" -a "add" -d "Grant mint authority"
complete -c bridgectl -f -n "__fish_seen_subcommand_from minters" -a "remove" -d "Revoke mint authority"

# Exemption subcommands
complete -c bridgectl -f -n "__fish_seen_subcommand_from exemptions" -a "list" -d "List fee exemptions"
complete -c bridgectl -f -n "__fish_seen_subcommand_from exemptions" -a "toggle" -d "Toggle a fee exemption"

# Completion subcommands
complete -c bridgectl -f -n "__fish_seen_subcommand_from completion" -a "bash" -d "Generate bash completion"
complete -c bridgectl -f -n "__fish_seen_subcommand_from completion" -a "zsh" -d "Generate zsh completion"
complete -c bridgectl -f -n "__fish_seen_subcommand_from completion" -a "fish" -d "Generate fish completion"

# Global flags
complete -c bridgectl -l server -r -d "Bridge API base URL"
complete -c bridgectl -l key -r -d "Hex-encoded signing key"
complete -c bridgectl -l keyfile -r -d "File containing the signing key"
complete -c bridgectl -l caller -r -d "Claimed address for unsigned requests"
complete -c bridgectl -l timeout -r -d "Request timeout in seconds"
complete -c bridgectl -l help -d "Show help information"
complete -c bridgectl -l version -d "Show version information"
`

// GenerateCompletion prints the completion script for the given shell.
func GenerateCompletion(shell string) error {
	var script string

	switch shell {
	case "bash":
		script = BashCompletion
	case "zsh":
		script = ZshCompletion
	case "fish":
		script = FishCompletion
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}

	fmt.Print(script)
	return nil
}

// InstallCompletion installs the completion script to the shell's standard
// location under the user's home directory.
func InstallCompletion(shell string) error {
	var script string
	var installPath string

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	switch shell {
	case "bash":
		script = BashCompletion
		installPath = filepath.Join(homeDir, ".bash_completion.d", "bridgectl")
	case "zsh":
		script = ZshCompletion
		installPath = filepath.Join(homeDir, ".zsh", "completion", "_bridgectl")
	case "fish":
		script = FishCompletion
		installPath = filepath.Join(homeDir, ".config", "fish", "completions", "bridgectl.fish")
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}

	if err := os.MkdirAll(filepath.Dir(installPath), 0755); err != nil {
		return fmt.Errorf("failed to create completion directory: %w", err)
	}
	if err := os.WriteFile(installPath, []byte(script), 0644); err != nil {
		return fmt.Errorf("failed to write completion script: %w", err)
	}

	fmt.Printf("Completion script installed to: %s\n", installPath)
	fmt.Println("\nTo enable completion, add the following to your shell config:")

	switch shell {
	case "bash":
		fmt.Println("  source ~/.bash_completion.d/bridgectl")
	case "zsh":
		fmt.Println("  fpath=(~/.zsh/completion $fpath)")
		fmt.Println("  autoload -Uz compinit && compinit")
	case "fish":
		fmt.Println("  # Fish loads completions from ~/.config/fish/completions/ automatically")
	}

	return nil
}
