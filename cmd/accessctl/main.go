// accessctl is the operator tool for the access ledger: inspect a user's
// window, extend it, bulk-extend, and list active/expired users. It talks to
// the database directly with the same service the bot uses.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/neuronai/neuronbot/internal/access"
	"github.com/neuronai/neuronbot/internal/config"
	"github.com/neuronai/neuronbot/internal/repositories/repomanager"
)

func main() {
	cfg := config.LoadFromEnv()

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	if cfg.AdminPasswordHash != "" {
		if err := promptPassword(cfg.AdminPasswordHash); err != nil {
			return err
		}
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	defer db.Close()

	repos := repomanager.NewPostgresRepositoryManager()
	svc := access.NewService(db, repos, cfg.AccessWindow)

	menu(context.Background(), svc)
	return nil
}

func promptPassword(hash string) error {
	fmt.Print("Пароль оператора: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), password) != nil {
		return fmt.Errorf("неверный пароль")
	}
	return nil
}

func menu(ctx context.Context, svc *access.Service) {
	in := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println("\n" + strings.Repeat("=", 60))
		fmt.Println("🤖 УПРАВЛЕНИЕ ДОСТУПОМ К БОТУ")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Println("1. 👤 Информация о пользователе")
		fmt.Println("2. ⏰ Продлить доступ пользователю")
		fmt.Println("3. 👥 Продлить доступ нескольким пользователям")
		fmt.Println("4. ✅ Список активных пользователей")
		fmt.Println("5. ❌ Список пользователей с истекшим доступом")
		fmt.Println("6. 🚪 Выход")
		fmt.Println(strings.Repeat("=", 60))
		fmt.Print("\nВыберите действие (1-6): ")

		if !in.Scan() {
			return
		}

		switch strings.TrimSpace(in.Text()) {
		case "1":
			id, ok := readID(in)
			if !ok {
				continue
			}
			showUser(ctx, svc, id)
		case "2":
			id, ok := readID(in)
			if !ok {
				continue
			}
			extendUser(ctx, svc, id)
		case "3":
			extendMany(ctx, svc, in)
		case "4":
			listUsers(ctx, svc, true)
		case "5":
			listUsers(ctx, svc, false)
		case "6":
			fmt.Println("До свидания!")
			return
		default:
			fmt.Println("❌ Выберите пункт от 1 до 6")
		}
	}
}

func readID(in *bufio.Scanner) (int64, bool) {
	fmt.Print("Введите Telegram ID: ")
	if !in.Scan() {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(in.Text()), 10, 64)
	if err != nil {
		fmt.Println("❌ Некорректный ID")
		return 0, false
	}
	return id, true
}

func showUser(ctx context.Context, svc *access.Service, id int64) {
	info, err := svc.UserInfo(ctx, id)
	if err != nil {
		fmt.Println("❌ Пользователь не найден")
		return
	}
	printInfo(info)
}

func extendUser(ctx context.Context, svc *access.Service, id int64) {
	ok, err := svc.ResetWindow(ctx, id)
	if err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
		return
	}
	if !ok {
		fmt.Println("❌ Пользователь не найден")
		return
	}
	fmt.Println("✅ Доступ продлен")
	showUser(ctx, svc, id)
}

func extendMany(ctx context.Context, svc *access.Service, in *bufio.Scanner) {
	fmt.Print("Введите Telegram ID через запятую: ")
	if !in.Scan() {
		return
	}

	var ids []int64
	for _, part := range strings.Split(in.Text(), ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			fmt.Println("❌ Некорректные данные")
			return
		}
		ids = append(ids, id)
	}

	result, err := svc.ExtendMany(ctx, ids)
	if err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
		return
	}

	fmt.Printf("\n✅ Успешно продлено: %d польз.\n", len(result.Success))
	if len(result.Success) > 0 {
		fmt.Printf("   ID: %v\n", result.Success)
	}
	fmt.Printf("\n❌ Не найдено: %d польз.\n", len(result.Failed))
	if len(result.Failed) > 0 {
		fmt.Printf("   ID: %v\n", result.Failed)
	}
}

func listUsers(ctx context.Context, svc *access.Service, active bool) {
	var (
		users []access.Info
		err   error
	)
	if active {
		users, err = svc.ActiveUsers(ctx)
	} else {
		users, err = svc.ExpiredUsers(ctx)
	}
	if err != nil {
		fmt.Printf("❌ Ошибка: %v\n", err)
		return
	}

	if active {
		fmt.Printf("\n✅ Активных пользователей: %d\n", len(users))
	} else {
		fmt.Printf("\n❌ Пользователей с истекшим доступом: %d\n", len(users))
	}
	for _, u := range users {
		printInfo(&u)
	}
}

func printInfo(info *access.Info) {
	fmt.Printf("\n📊 Информация о пользователе %d\n", info.ExternalID)
	fmt.Printf("   Начало доступа: %s\n", info.FirstSeenAt.Format(time.RFC3339))
	fmt.Printf("   Конец доступа:  %s\n", info.AccessUntil.Format(time.RFC3339))

	if info.HasAccess {
		fmt.Println("   ✅ Статус: АКТИВЕН")
		fmt.Printf("   ⏰ Осталось: %s\n", formatDuration(*info.TimeLeft))
	} else {
		fmt.Println("   ❌ Статус: ИСТЕК")
		fmt.Printf("   ⏰ Истек назад: %s\n", formatDuration(*info.ExpiredAgo))
	}
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%d ч. %d мин.", hours, minutes)
}
