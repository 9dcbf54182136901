package mocks

//go:generate mockery --name Sink --srcpkg github.com/aevon-lab/meterstats/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name Source --srcpkg github.com/aevon-lab/meterstats/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
