/*
Package wallet provides wallet management functionality for the application.

The wallet service is the read and credit surface over the ledger:
- Balance reads (cache-first, with display formatting)
- Wallet creation on registration
- Crediting deposits, earnings and rewards through ledger transactions
- Debiting settled withdrawals
- Transaction history

All balance mutation is delegated to the ledger repository, which applies
it as a single conditional database update. This service never computes a
new balance in memory.

Usage:

	svc := wallet.NewService(ledger, cacheService, wallet.Config{}, nil)

	w, err := svc.EnsureWallet(ctx, userID, "USD")

	tx, err := svc.Credit(ctx, wallet.CreditRequest{
	    UserID:      userID,
	    Amount:      5000,
	    Type:        models.TransactionTypeDeposit,
	    Description: "Booking deposit",
	})

	entries, err := svc.History(ctx, userID, 20, 0)

Error Handling:

The service returns specific errors for different scenarios:
- ErrWalletNotFound: the user has no wallet yet
- ErrInvalidAmount: zero or negative mutation amount
- ErrInsufficientBalance: a debit would take the balance below zero
*/
package wallet
