package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/BuzzLyutic/secure-task-manager/internal/client"
	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

var errUsage = errors.New("usage")

// app - состояние терминального клиента: сессия на диске и список задач в памяти
type app struct {
	api          *client.Client
	sessions     *client.SessionStore
	session      *client.Session
	tasks        []model.Task
	out          io.Writer
	readPassword func(prompt string) (string, error)
}

func newApp(api *client.Client, sessions *client.SessionStore, out io.Writer, readPassword func(string) (string, error)) (*app, error) {
	a := &app{
		api:          api,
		sessions:     sessions,
		out:          out,
		readPassword: readPassword,
	}

	sess, ok, err := sessions.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		a.session = &sess
		api.SetToken(sess.Token)
	}
	return a, nil
}

func (a *app) loggedIn() bool {
	return a.session != nil
}

func (a *app) prompt() string {
	if a.loggedIn() {
		return a.session.User.Username + "> "
	}
	return "taskctl> "
}

// Execute выполняет одну команду. Без сохраненного токена доступны только register/login/help.
func (a *app) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}

	cmd, rest := args[0], args[1:]
	if cmd == "help" {
		a.printHelp()
		return nil
	}

	if !a.loggedIn() {
		switch cmd {
		case "register":
			return a.register(ctx, rest)
		case "login":
			return a.login(ctx, rest)
		default:
			return fmt.Errorf("not logged in: use 'login' or 'register'")
		}
	}

	var err error
	switch cmd {
	case "list", "ls":
		err = a.list(ctx)
	case "show":
		err = a.show(ctx, rest)
	case "add":
		err = a.add(ctx, rest)
	case "edit":
		err = a.edit(ctx, rest)
	case "done":
		err = a.setCompleted(ctx, rest, true)
	case "undo":
		err = a.setCompleted(ctx, rest, false)
	case "rm":
		err = a.remove(ctx, rest)
	case "whoami":
		fmt.Fprintf(a.out, "%s <%s> (id %d)\n", a.session.User.Username, a.session.User.Email, a.session.User.UserID)
	case "logout":
		err = a.logout()
	case "register", "login":
		err = fmt.Errorf("already logged in as %s: use 'logout' first", a.session.User.Username)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if client.IsUnauthorized(err) {
		if clearErr := a.logout(); clearErr != nil {
			return clearErr
		}
		return fmt.Errorf("session expired, please log in again")
	}
	return err
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: register <username> <email>", errUsage)
	}
	password, err := a.readPassword("password: ")
	if err != nil {
		return err
	}

	id, err := a.api.Register(ctx, args[0], args[1], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s (id %d), now run 'login %s'\n", args[0], id, args[0])
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: login <username>", errUsage)
	}
	password, err := a.readPassword("password: ")
	if err != nil {
		return err
	}

	sess, err := a.api.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	if err := a.sessions.Save(sess); err != nil {
		return err
	}
	a.session = &sess
	a.tasks = nil
	fmt.Fprintf(a.out, "welcome, %s!\n", sess.User.Username)
	return a.list(ctx)
}

func (a *app) logout() error {
	if err := a.sessions.Clear(); err != nil {
		return err
	}
	a.session = nil
	a.tasks = nil
	a.api.SetToken("")
	return nil
}

func (a *app) list(ctx context.Context) error {
	tasks, err := a.api.ListTasks(ctx)
	if err != nil {
		return err
	}
	a.tasks = tasks

	if len(tasks) == 0 {
		fmt.Fprintln(a.out, "no tasks yet, add one with 'add <title>'")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tCREATED")
	for _, t := range tasks {
		done := " "
		if t.IsCompleted {
			done = "x"
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\n", t.ID, done, t.Title, t.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := taskID(args, "show <id>")
	if err != nil {
		return err
	}

	t, err := a.api.GetTask(ctx, id)
	if err != nil {
		return err
	}
	a.replace(t)

	fmt.Fprintf(a.out, "#%d %s\n", t.ID, t.Title)
	if t.Description != "" {
		fmt.Fprintf(a.out, "  %s\n", t.Description)
	}
	fmt.Fprintf(a.out, "  created:   %s\n", t.CreatedAt.Local().Format(time.DateTime))
	if t.CompletedAt != nil {
		fmt.Fprintf(a.out, "  completed: %s\n", t.CompletedAt.Local().Format(time.DateTime))
	}
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: add <title> [description]", errUsage)
	}
	var description string
	if len(args) == 2 {
		description = args[1]
	}

	t, err := a.api.CreateTask(ctx, args[0], description)
	if err != nil {
		return err
	}
	a.tasks = append([]model.Task{t}, a.tasks...)
	fmt.Fprintf(a.out, "created #%d\n", t.ID)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: edit <id> <title> [description]", errUsage)
	}
	id, err := taskID(args[:1], "edit <id> <title> [description]")
	if err != nil {
		return err
	}

	current, err := a.api.GetTask(ctx, id)
	if err != nil {
		return err
	}
	description := current.Description
	if len(args) == 3 {
		description = args[2]
	}

	t, err := a.api.UpdateTask(ctx, id, args[1], description, current.IsCompleted)
	if err != nil {
		return err
	}
	a.replace(t)
	fmt.Fprintf(a.out, "updated #%d\n", t.ID)
	return nil
}

func (a *app) setCompleted(ctx context.Context, args []string, completed bool) error {
	id, err := taskID(args, "done|undo <id>")
	if err != nil {
		return err
	}

	current, err := a.api.GetTask(ctx, id)
	if err != nil {
		return err
	}

	t, err := a.api.UpdateTask(ctx, id, current.Title, current.Description, completed)
	if err != nil {
		return err
	}
	a.replace(t)

	state := "open"
	if t.IsCompleted {
		state = "done"
	}
	fmt.Fprintf(a.out, "#%d is %s\n", t.ID, state)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	id, err := taskID(args, "rm <id>")
	if err != nil {
		return err
	}

	if err := a.api.DeleteTask(ctx, id); err != nil {
		return err
	}
	for i, t := range a.tasks {
		if t.ID == id {
			a.tasks = append(a.tasks[:i], a.tasks[i+1:]...)
			break
		}
	}
	fmt.Fprintf(a.out, "deleted #%d\n", id)
	return nil
}

// replace обновляет задачу в локальном списке после ответа сервера
func (a *app) replace(t model.Task) {
	for i := range a.tasks {
		if a.tasks[i].ID == t.ID {
			a.tasks[i] = t
			return
		}
	}
}

func (a *app) printHelp() {
	if !a.loggedIn() {
		fmt.Fprintln(a.out, `commands:
  register <username> <email>   create an account (prompts for password)
  login <username>              log in (prompts for password)
  exit                          quit`)
		return
	}
	fmt.Fprintln(a.out, `commands:
  list                              list tasks, newest first
  show <id>                         show one task
  add <title> [description]         create a task
  edit <id> <title> [description]  change title and description
  done <id> | undo <id>             mark completed / not completed
  rm <id>                           delete a task
  whoami | logout | exit`)
}

func taskID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

// parseArgs делит строку на аргументы, двойные кавычки объединяют слова
func parseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, char := range input {
		switch {
		case char == '"':
			inQuotes = !inQuotes
		case char == ' ' && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
