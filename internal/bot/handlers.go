package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const dialogAdjustBalance = "adjust_balance"

const (
	adjustStepUserID = iota
	adjustStepAmount
)

// handleStart registers the user through the same path as the Mini-App auth
// endpoint. The deep-link payload, if any, is the referral token.
func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	profile := &model.User{
		TelegramID: message.From.ID,
		Username:   message.From.UserName,
		FirstName:  message.From.FirstName,
		LastName:   message.From.LastName,
	}

	result, err := b.users.Authenticate(ctx, profile, message.CommandArguments())
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	welcome := fmt.Sprintf(
		"Welcome to TaskHub, %s!\n\nComplete tasks, earn points and invite friends.\nYour referral code: %s",
		result.User.DisplayName(),
		result.User.ReferralCode,
	)
	if result.BonusGranted {
		welcome += fmt.Sprintf("\n\nYou got %d bonus points for joining via a referral link!", service.SignupBonus)
	}

	return b.reply(message.Chat.ID, welcome)
}

func (b *Bot) handleBalance(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.users.GetUserByTelegramID(ctx, message.From.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return b.reply(message.Chat.ID, "You are not registered yet. Send /start first.")
		}
		return err
	}

	level := model.LevelForEarned(user.Balance + user.ReferralEarned)
	return b.reply(message.Chat.ID, fmt.Sprintf(
		"Balance: %d points\nLevel: %d (%d%% to next)\nReferrals: %d, earned %d points from them",
		user.Balance, level.Number, level.ProgressPct, user.ReferralCount, user.ReferralEarned,
	))
}

func (b *Bot) handleHelp(message *tgbotapi.Message) error {
	return b.reply(message.Chat.ID,
		"/start — register and open the app\n/balance — your points and level\n/help — this message")
}

// handleAdjustStart opens the admin balance-adjustment dialog. The dialog
// position lives in the session store, so it survives restarts and expires
// on its own if the admin walks away.
func (b *Bot) handleAdjustStart(ctx context.Context, message *tgbotapi.Message) error {
	admin, err := b.users.GetUserByTelegramID(ctx, message.From.ID)
	if err != nil || !admin.IsAdmin {
		return b.reply(message.Chat.ID, "Unknown command. Try /help.")
	}

	err = b.sessions.Set(ctx, message.From.ID, &session.DialogState{
		Action: dialogAdjustBalance,
		Step:   adjustStepUserID,
		Data:   map[string]string{},
	})
	if err != nil {
		return err
	}

	return b.reply(message.Chat.ID, "Whose balance should be adjusted? Send the telegram id.")
}

func (b *Bot) handleDialogInput(ctx context.Context, message *tgbotapi.Message) error {
	state, err := b.sessions.Get(ctx, message.From.ID)
	if err != nil {
		if errors.Is(err, session.ErrNoDialog) {
			return nil
		}
		return err
	}

	if state.Action != dialogAdjustBalance {
		return b.sessions.Clear(ctx, message.From.ID)
	}

	switch state.Step {
	case adjustStepUserID:
		if _, err := strconv.ParseInt(message.Text, 10, 64); err != nil {
			return b.reply(message.Chat.ID, "That doesn't look like a telegram id, try again.")
		}

		state.Data["telegram_id"] = message.Text
		state.Step = adjustStepAmount
		if err := b.sessions.Set(ctx, message.From.ID, state); err != nil {
			return err
		}

		return b.reply(message.Chat.ID, "By how many points? Negative values deduct.")

	case adjustStepAmount:
		delta, err := strconv.Atoi(message.Text)
		if err != nil || delta == 0 {
			return b.reply(message.Chat.ID, "Send a non-zero number of points.")
		}

		targetID, err := strconv.ParseInt(state.Data["telegram_id"], 10, 64)
		if err != nil {
			return b.sessions.Clear(ctx, message.From.ID)
		}

		if err := b.sessions.Clear(ctx, message.From.ID); err != nil {
			return err
		}

		err = b.users.AdjustBalance(ctx, targetID, delta)
		if err != nil {
			if errors.Is(err, service.ErrInsufficientBalance) {
				return b.reply(message.Chat.ID, "Refused: that would make the balance negative.")
			}
			return err
		}

		return b.reply(message.Chat.ID, fmt.Sprintf("Done, balance of %d adjusted by %+d.", targetID, delta))
	}

	return b.sessions.Clear(ctx, message.From.ID)
}
