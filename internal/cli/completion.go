package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// BashCompletion is the bash completion script for boctl.
const BashCompletion = `#!/bin/bash
# Bash completion for boctl

_boctl_completion() {
    local cur prev
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    local commands="login logout whoami menu status user role api dept auditlog product category upload completion help"

    local crud="list get create update delete"
    local user_cmds="${crud} reset-password"
    local role_cmds="${crud} grant"
    local menu_cmds="${crud}"
    local api_cmds="${crud} refresh tags"
    local dept_cmds="${crud}"
    local auditlog_cmds="list delete batch-delete clear export stats tail"
    local product_cmds="${crud} status"
    local category_cmds="${crud}"

    local global_flags="--server --json --verbose --help"

    case "${prev}" in
        user)
            COMPREPLY=( $(compgen -W "${user_cmds}" -- ${cur}) )
            return 0
            ;;
        role)
            COMPREPLY=( $(compgen -W "${role_cmds}" -- ${cur}) )
            return 0
            ;;
        menu)
            COMPREPLY=( $(compgen -W "${menu_cmds}" -- ${cur}) )
            return 0
            ;;
        api)
            COMPREPLY=( $(compgen -W "${api_cmds}" -- ${cur}) )
            return 0
            ;;
        dept)
            COMPREPLY=( $(compgen -W "${dept_cmds}" -- ${cur}) )
            return 0
            ;;
        auditlog)
            COMPREPLY=( $(compgen -W "${auditlog_cmds}" -- ${cur}) )
            return 0
            ;;
        product)
            COMPREPLY=( $(compgen -W "${product_cmds}" -- ${cur}) )
            return 0
            ;;
        category)
            COMPREPLY=( $(compgen -W "${category_cmds}" -- ${cur}) )
            return 0
            ;;
        upload)
            COMPREPLY=( $(compgen -W "image" -- ${cur}) )
            return 0
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh fish" -- ${cur}) )
            return 0
            ;;
        --server)
            return 0
            ;;
        *)
            ;;
    esac

    COMPREPLY=( $(compgen -W "${commands} ${global_flags}" -- ${cur}) )
    return 0
}

complete -F _boctl_completion boctl
`

// ZshCompletion is the zsh completion script for boctl.
const ZshCompletion = `#compdef boctl

_boctl() {
    local -a commands
    commands=(
        'login:Authenticate and store the session'
        'logout:Revoke the token and clear the session'
        'whoami:Show the logged-in operator'
        'menu:Show the permission menu tree or manage menus'
        'status:Show server health'
        'user:Manage operator accounts'
        'role:Manage roles and grants'
        'api:Manage grantable API routes'
        'dept:Manage departments'
        'auditlog:Inspect the audit trail'
        'product:Manage catalog products'
        'category:Manage catalog categories'
        'upload:Upload files'
        'completion:Generate shell completion script'
        'help:Show help'
    )

    local -a global_flags
    global_flags=(
        '--server[Server base URL]:url:'
        '--json[Print raw JSON instead of tables]'
        '--verbose[Debug logging to stderr]'
        '--help[Show help]'
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
                user)
                    _values 'verb' list get create update delete reset-password
                    ;;
                role)
                    _values 'verb' list get create update delete grant
                    ;;
                menu|dept|category)
                    _values 'verb' list get create update delete
                    ;;
                api)
                    _values 'verb' list get create update delete refresh tags
                    ;;
                auditlog)
                    _values 'verb' list delete batch-delete clear export stats tail
                    ;;
                product)
                    _values 'verb' list get create update delete status
                    ;;
                upload)
                    _values 'verb' image
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_boctl "$@"
`

// FishCompletion is the fish completion script for boctl.
const FishCompletion = `# Fish completion for boctl

complete -c boctl -f -n "__fish_use_subcommand" -a "login" -d "Authenticate and store the session"
complete -c boctl -f -n "__fish_use_subcommand" -a "logout" -d "Revoke the token and clear the session"
complete -c boctl -f -n "__fish_use_subcommand" -a "whoami" -d "Show the logged-in operator"
complete -c boctl -f -n "__fish_use_subcommand" -a "menu" -d "Show the permission menu tree or manage menus"
complete -c boctl -f -n "__fish_use_subcommand" -a "status" -d "Show server health"
complete -c boctl -f -n "__fish_use_subcommand" -a "user" -d "Manage operator accounts"
complete -c boctl -f -n "__fish_use_subcommand" -a "role" -d "Manage roles and grants"
complete -c boctl -f -n "__fish_use_subcommand" -a "api" -d "Manage grantable API routes"
complete -c boctl -f -n "__fish_use_subcommand" -a "dept" -d "Manage departments"
complete -c boctl -f -n "__fish_use_subcommand" -a "auditlog" -d "Inspect the audit trail"
complete -c boctl -f -n "__fish_use_subcommand" -a "product" -d "Manage catalog products"
complete -c boctl -f -n "__fish_use_subcommand" -a "category" -d "Manage catalog categories"
complete -c boctl -f -n "__fish_use_subcommand" -a "upload" -d "Upload files"
complete -c boctl -f -n "__fish_use_subcommand" -a "completion" -d "Generate shell completion"

complete -c boctl -f -n "__fish_seen_subcommand_from user" -a "list get create update delete reset-password"
complete -c boctl -f -n "__fish_seen_subcommand_from role" -a "list get create update delete grant"
complete -c boctl -f -n "__fish_seen_subcommand_from menu dept category" -a "list get create update delete"
complete -c boctl -f -n "__fish_seen_subcommand_from api" -a "list get create update delete refresh tags"
complete -c boctl -f -n "__fish_seen_subcommand_from auditlog" -a "list delete batch-delete clear export stats tail"
complete -c boctl -f -n "__fish_seen_subcommand_from product" -a "list get create update delete status"
complete -c boctl -f -n "__fish_seen_subcommand_from upload" -a "image"
complete -c boctl -f -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"

complete -c boctl -l server -r -d "Server base URL"
complete -c boctl -l json -d "Print raw JSON instead of tables"
complete -c boctl -l verbose -d "Debug logging to stderr"
complete -c boctl -l help -d "Show help"
`

// GenerateCompletion writes the completion script for shell to stdout.
func GenerateCompletion(shell string) error {
	switch shell {
	case "bash":
		fmt.Print(BashCompletion)
	case "zsh":
		fmt.Print(ZshCompletion)
	case "fish":
		fmt.Print(FishCompletion)
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish)", shell)
	}
	return nil
}

// InstallCompletion writes the completion script to the shell's standard
// user completion directory.
func InstallCompletion(shell string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	var script, installPath string
	switch shell {
	case "bash":
		script = BashCompletion
		installPath = filepath.Join(homeDir, ".bash_completion.d", "boctl")
	case "zsh":
		script = ZshCompletion
		installPath = filepath.Join(homeDir, ".zsh", "completion", "_boctl")
	case "fish":
		script = FishCompletion
		installPath = filepath.Join(homeDir, ".config", "fish", "completions", "boctl.fish")
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}

	if err := os.MkdirAll(filepath.Dir(installPath), 0o755); err != nil {
		return fmt.Errorf("create completion directory: %w", err)
	}
	if err := os.WriteFile(installPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("write completion script: %w", err)
	}

	fmt.Printf("Completion script installed to: %s\n", installPath)
	switch shell {
	case "bash":
		fmt.Println("Enable it with: source ~/.bash_completion.d/boctl")
	case "zsh":
		fmt.Println("Enable it with: fpath=(~/.zsh/completion $fpath); autoload -Uz compinit && compinit")
	case "fish":
		fmt.Println("Fish loads completions from ~/.config/fish/completions/ automatically.")
	}
	return nil
}
