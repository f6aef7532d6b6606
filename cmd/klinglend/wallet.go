package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/Klingon-tech/klingnet-lend/config"
	"github.com/Klingon-tech/klingnet-lend/internal/wallet"
	"golang.org/x/term"
)

func cmdWallet(cfg *config.Config, args []string) {
	const help = "Usage: klinglend wallet <create|import|list|address|new-address> [flags]"
	if len(args) < 1 {
		fatal(help)
	}
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	name := cfg.Wallet.Name

	switch args[0] {
	case "create":
		mnemonic, err := wallet.GenerateMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		fmt.Println("Mnemonic (write this down!):")
		fmt.Printf("  %s\n\n", mnemonic)
		createWallet(ks, name, mnemonic)
	case "import":
		fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
		mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic")
		fs.Parse(args[1:])
		if *mnemonic == "" {
			fatal(`Usage: klinglend wallet import --mnemonic "word1 word2 ..."`)
		}
		if !wallet.ValidateMnemonic(*mnemonic) {
			fatal("invalid mnemonic")
		}
		createWallet(ks, name, *mnemonic)
	case "list":
		names, err := ks.List()
		if err != nil {
			fatal("%v", err)
		}
		if len(names) == 0 {
			fmt.Println("No wallets.")
			return
		}
		for _, n := range names {
			fmt.Println(n)
		}
	case "address":
		addrs, err := ks.Addresses(name)
		if err != nil {
			fatal("%v", err)
		}
		for i, a := range addrs {
			fmt.Printf("%d  %s\n", i, a)
		}
	case "new-address":
		password := mustPassword("Password: ")
		addr, err := ks.NewAddress(name, password)
		if err != nil {
			fatal("%v", err)
		}
		fmt.Println(addr)
	default:
		fatal("Unknown wallet command: %s\n%s", args[0], help)
	}
}

func createWallet(ks *wallet.Keystore, name, mnemonic string) {
	password := mustPassword("Enter password: ")
	if string(password) != string(mustPassword("Confirm password: ")) {
		fatal("passwords do not match")
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("%v", err)
	}
	addr, err := ks.Create(name, seed, password, wallet.DefaultParams())
	for i := range seed {
		seed[i] = 0
	}
	if err != nil {
		fatal("create wallet: %v", err)
	}
	fmt.Printf("Wallet: %s\n", name)
	fmt.Printf("Address: %s\n", addr)
}

// unlock opens the configured wallet, prompting for its password.
func unlock(cfg *config.Config) *wallet.Wallet {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if !ks.Exists(cfg.Wallet.Name) {
		fatal("wallet %q not found (create one with 'klinglend wallet create')", cfg.Wallet.Name)
	}
	w, err := ks.Unlock(cfg.Wallet.Name, mustPassword(fmt.Sprintf("Password for %s: ", cfg.Wallet.Name)))
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	return w
}

// ownedAddresses lists the wallet's addresses without unlocking it. A
// missing wallet owns nothing.
func ownedAddresses(cfg *config.Config) []string {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil || !ks.Exists(cfg.Wallet.Name) {
		return nil
	}
	addrs, err := ks.Addresses(cfg.Wallet.Name)
	if err != nil {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

func mustPassword(prompt string) []byte {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fatal("read password: %v", err)
	}
	return password
}
