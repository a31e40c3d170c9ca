// memberctl — клиент membergate для командной строки.
// Регистрация, вход и операции с учётной записью через Keycloak.
// Сессия сохраняется в зашифрованном файле (MG_SESSION_FILE) между запусками.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bigkaa/membergate/internal/app"
	"github.com/bigkaa/membergate/internal/config"
	"github.com/bigkaa/membergate/internal/session"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
		usage(os.Stderr)
		if len(os.Args) < 2 {
			os.Exit(2)
		}
		return
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "ошибка:", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}
	// Для CLI логи только в stderr и по умолчанию не ниже warn.
	if os.Getenv("MG_LOG_LEVEL") == "" {
		cfg.LogLevel = slog.LevelWarn
	}
	cfg.LogFormat = "text"
	logger := config.SetupLogger(cfg)

	ctx := context.Background()
	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	persister, err := session.NewFilePersister(cfg.SessionFile, cfg.SessionSecret)
	if err != nil {
		return err
	}
	sess := components.NewSession()
	if err := sess.PersistAcrossReloads(persister); err != nil {
		return err
	}
	if _, err := sess.Restore(ctx); err != nil {
		logger.Warn("Сохранённая сессия недействительна", slog.String("error", err.Error()))
	}

	c := &cli{
		session:      sess,
		accounts:     components.Accounts.WithSession(sess),
		roles:        components.Roles,
		admission:    components.Admission,
		out:          os.Stdout,
		readPassword: promptPassword,
	}
	return c.dispatch(ctx, command, args)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Использование: memberctl <команда> [флаги]

Команды:
  signup               регистрация по коду приглашения
  signin               вход по email и паролю
  signout              выход
  whoami               текущий пользователь, роль и допуск
  reset-password       письмо для сброса пароля
  resend-verification  повторное письмо подтверждения email

Конфигурация — переменные окружения MG_* (см. membergate).`)
}

// promptPassword читает пароль без эха, если stdin — терминал,
// иначе — одну строку из stdin.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: дескриптор stdin помещается в int
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("чтение пароля: %w", err)
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("чтение пароля: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
