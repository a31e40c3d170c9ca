// commands.go — подкоманды memberctl.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/service"
)

// identitySession — текущая сессия CLI.
type identitySession interface {
	Current() *model.Identity
	Reload(ctx context.Context) (*model.Identity, error)
}

// roleResolver вычисляет роль текущего пользователя.
type roleResolver interface {
	Resolve(ctx context.Context, identity *model.Identity) model.RoleDecision
}

// admissionChecker проверяет допуск текущего пользователя.
type admissionChecker interface {
	Check(ctx context.Context, identity *model.Identity) model.Admission
}

// cli — подкоманды поверх сервисного слоя.
type cli struct {
	session      identitySession
	accounts     *service.AccountService
	roles        roleResolver
	admission    admissionChecker
	out          io.Writer
	readPassword func(prompt string) (string, error)
}

func (c *cli) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return c.signUp(ctx, args)
	case "signin":
		return c.signIn(ctx, args)
	case "signout":
		return c.signOut(ctx)
	case "whoami":
		return c.whoAmI(ctx)
	case "reset-password":
		return c.resetPassword(ctx, args)
	case "resend-verification":
		return c.resendVerification(ctx)
	default:
		return fmt.Errorf("неизвестная команда %q", command)
	}
}

// password возвращает пароль из флага или запрашивает его.
func (c *cli) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return c.readPassword("Пароль: ")
}

func (c *cli) signUp(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(c.out)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "пароль (если не задан — запрашивается)")
	firstName := fs.String("first-name", "", "имя")
	lastName := fs.String("last-name", "", "фамилия")
	invite := fs.String("invite", "", "код приглашения")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pwd, err := c.password(*password)
	if err != nil {
		return err
	}

	result, err := c.accounts.SignUp(ctx, service.SignUpInput{
		Email:      *email,
		Password:   pwd,
		FirstName:  *firstName,
		LastName:   *lastName,
		InviteCode: *invite,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Зарегистрирован: %s (%s)\n", result.Identity.Email, result.Identity.ID)
	fmt.Fprintln(c.out, "Письмо для подтверждения email отправлено.")
	for _, w := range result.Warnings {
		fmt.Fprintln(c.out, "Предупреждение:", w)
	}
	return nil
}

func (c *cli) signIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	fs.SetOutput(c.out)
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "пароль (если не задан — запрашивается)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pwd, err := c.password(*password)
	if err != nil {
		return err
	}

	identity, err := c.accounts.SignIn(ctx, *email, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Вход выполнен: %s (%s)\n", identity.Email, identity.ID)
	return nil
}

func (c *cli) signOut(ctx context.Context) error {
	if err := c.accounts.SignOut(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Выход выполнен.")
	return nil
}

func (c *cli) whoAmI(ctx context.Context) error {
	identity := c.session.Current()
	if identity == nil {
		return service.ErrNotSignedIn
	}
	// Подтверждение email и смена профиля видны только после обновления токенов.
	if fresh, err := c.session.Reload(ctx); err != nil {
		fmt.Fprintf(c.out, "Не удалось обновить сессию: %v\n", err)
	} else if fresh != nil {
		identity = fresh
	}

	decision := c.roles.Resolve(ctx, identity)
	admission := c.admission.Check(ctx, identity)

	fmt.Fprintf(c.out, "ID:         %s\n", identity.ID)
	fmt.Fprintf(c.out, "Email:      %s\n", identity.Email)
	fmt.Fprintf(c.out, "Подтверждён: %s\n", yesNo(identity.EmailVerified))
	fmt.Fprintf(c.out, "Роль:       %s\n", describeRole(decision))
	if admission.OK {
		fmt.Fprintln(c.out, "Допуск:     есть")
	} else {
		fmt.Fprintf(c.out, "Допуск:     нет (%s)\n", admission.Reason)
	}
	return nil
}

func (c *cli) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	fs.SetOutput(c.out)
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.accounts.ResetPassword(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Письмо для сброса пароля отправлено.")
	return nil
}

func (c *cli) resendVerification(ctx context.Context) error {
	if err := c.accounts.ResendVerification(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Письмо подтверждения отправлено повторно.")
	return nil
}

// describeRole — роль и признаки владельца для вывода.
func describeRole(d model.RoleDecision) string {
	if d.Role == "" {
		return "нет"
	}
	parts := []string{d.Role}
	if d.IsOwner {
		parts = append(parts, "owner")
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
